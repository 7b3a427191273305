package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/querysql"
)

// maxInParams bounds the size of IN (...) lists per statement.
const maxInParams = 500

// Load returns the current revision of an entity in its default language.
// Returns content.ErrNotFound if the entity does not exist.
func (s *Store) Load(ctx context.Context, typeID string, id int64) (*content.Revision, error) {
	var current int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT current_revision_id FROM entities
		WHERE type_id = ? AND id = ?
	`), typeID, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %s %d: %w", typeID, id, content.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", typeID, id, err)
	}

	return s.LoadRevision(ctx, typeID, current)
}

// LoadByUniqueKey returns the current revision of every entity with the given
// uuid, ordered by entity id. Returns an empty slice when nothing matches.
func (s *Store) LoadByUniqueKey(ctx context.Context, typeID, key string) ([]*content.Revision, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT current_revision_id FROM entities
		WHERE type_id = ? AND uuid = ?
		ORDER BY id ASC
	`), typeID, key)
	if err != nil {
		return nil, fmt.Errorf("query entities by uuid: %w", err)
	}

	var current []int64
	for rows.Next() {
		var revisionID int64
		if err := rows.Scan(&revisionID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		current = append(current, revisionID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	rows.Close()

	return s.LoadRevisions(ctx, typeID, current)
}

// LoadRevision returns one revision in its default language.
// Returns content.ErrNotFound if no such revision exists for the type.
func (s *Store) LoadRevision(ctx context.Context, typeID string, revisionID int64) (*content.Revision, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+revisionColumns+`
		FROM entity_revisions r
		JOIN entities e ON e.type_id = r.type_id AND e.id = r.id
		WHERE r.type_id = ? AND r.revision_id = ?
		ORDER BY r.default_langcode DESC, r.langcode ASC
		LIMIT 1
	`), typeID, revisionID)

	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load revision %s %d: %w", typeID, revisionID, content.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load revision %s %d: %w", typeID, revisionID, err)
	}
	return rev, nil
}

// LoadTranslation returns one language row of a revision.
func (s *Store) LoadTranslation(ctx context.Context, typeID string, revisionID int64, langcode string) (*content.Revision, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+revisionColumns+`
		FROM entity_revisions r
		JOIN entities e ON e.type_id = r.type_id AND e.id = r.id
		WHERE r.type_id = ? AND r.revision_id = ? AND r.langcode = ?
	`), typeID, revisionID, langcode)

	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load translation %s %d %s: %w", typeID, revisionID, langcode, content.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load translation %s %d %s: %w", typeID, revisionID, langcode, err)
	}
	return rev, nil
}

// LatestRevisionID returns the highest revision id of an entity, which may be
// newer than its current revision.
// Returns content.ErrNotFound if the entity has no revisions.
func (s *Store) LatestRevisionID(ctx context.Context, typeID string, id int64) (int64, error) {
	var latest sql.NullInt64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT MAX(revision_id) FROM entity_revisions
		WHERE type_id = ? AND id = ?
	`), typeID, id).Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("latest revision %s %d: %w", typeID, id, err)
	}
	if !latest.Valid {
		return 0, fmt.Errorf("latest revision %s %d: %w", typeID, id, content.ErrNotFound)
	}
	return latest.Int64, nil
}

// LoadRevisions bulk-loads revisions in their default language.
// Results follow the order of revisionIDs; unknown ids are skipped.
// Returns an empty slice (not nil) if nothing was found.
func (s *Store) LoadRevisions(ctx context.Context, typeID string, revisionIDs []int64) ([]*content.Revision, error) {
	byID := make(map[int64]*content.Revision, len(revisionIDs))

	for start := 0; start < len(revisionIDs); start += maxInParams {
		end := min(start+maxInParams, len(revisionIDs))
		chunk := revisionIDs[start:end]

		args := make([]any, 0, len(chunk)+1)
		args = append(args, typeID)
		for _, id := range chunk {
			args = append(args, id)
		}

		rows, err := s.db.QueryContext(ctx, s.rebind(`
			SELECT `+revisionColumns+`
			FROM entity_revisions r
			JOIN entities e ON e.type_id = r.type_id AND e.id = r.id
			WHERE r.type_id = ? AND r.revision_id IN (`+placeholders(len(chunk))+`)
			ORDER BY r.revision_id ASC, r.default_langcode DESC, r.langcode ASC
		`), args...)
		if err != nil {
			return nil, fmt.Errorf("query revisions: %w", err)
		}

		for rows.Next() {
			rev, err := scanRevision(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan revision: %w", err)
			}
			// First row per revision is the default language.
			if _, seen := byID[rev.RevisionID]; !seen {
				byID[rev.RevisionID] = rev
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate revisions: %w", err)
		}
		rows.Close()
	}

	revisions := make([]*content.Revision, 0, len(revisionIDs))
	for _, id := range revisionIDs {
		if rev, ok := byID[id]; ok {
			revisions = append(revisions, rev)
		}
	}
	return revisions, nil
}

// RankedRevisionIDs runs the sync ranking query: the top-ranked qualifying
// revision per entity, ordered by revision id ascending.
func (s *Store) RankedRevisionIDs(ctx context.Context, q content.UpdatedQuery) ([]int64, error) {
	query, params, err := s.compiler.CompileRanked(querysql.DefaultRevisionTable, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query ranked revisions: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ranked revision: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ranked revisions: %w", err)
	}

	return ids, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
