package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/argosync/internal/content"
)

// marshalFields converts revision fields to canonical JSON TEXT for storage.
func marshalFields(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	data, err := content.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(data), nil
}

// unmarshalFields parses stored field JSON.
// Numbers are decoded via json.Number so integers above 2^53 survive;
// integral values come back as int64, the rest as float64.
func unmarshalFields(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return content.NormalizeNumbers(fields).(map[string]any), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableChanged(changed *int64) sql.NullInt64 {
	if changed == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *changed, Valid: true}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// revisionColumns is the projection used by every revision read.
const revisionColumns = `r.type_id, e.bundle, r.id, r.revision_id, e.uuid, r.langcode,
		r.default_langcode, r.published, r.changed, r.path, r.owner_id,
		r.moderation_state, r.fields`

// scanRevision scans one row selected with revisionColumns.
func scanRevision(row rowScanner) (*content.Revision, error) {
	var (
		rev             content.Revision
		defaultLangcode int
		published       int
		changed         sql.NullInt64
		fieldsJSON      string
	)

	if err := row.Scan(
		&rev.TypeID, &rev.Bundle, &rev.ID, &rev.RevisionID, &rev.UUID, &rev.Langcode,
		&defaultLangcode, &published, &changed, &rev.Path, &rev.OwnerID,
		&rev.ModerationState, &fieldsJSON,
	); err != nil {
		return nil, err
	}

	rev.DefaultLangcode = defaultLangcode != 0
	rev.Published = published != 0
	if changed.Valid {
		rev.SetChanged(changed.Int64)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return nil, err
	}
	rev.Fields = fields

	return &rev, nil
}
