// Package exporter turns revisions into the documents handed to the
// localization pipeline.
//
// Documents use the entity type's own key names (nid, vid, status, ...) so the
// pipeline sees the same identifiers as the content store. Marshal writes
// canonical JSON, so exporting the same revision twice yields identical bytes.
package exporter

import (
	"fmt"

	"github.com/roach88/argosync/internal/content"
)

// TypeRegistry resolves entity type ids to descriptors.
type TypeRegistry interface {
	Lookup(typeID string) (content.EntityType, bool)
}

// Exporter is the default document exporter.
type Exporter struct {
	types TypeRegistry
}

// New creates an exporter over the given registry.
func New(types TypeRegistry) *Exporter {
	return &Exporter{types: types}
}

// Export builds the document for one revision.
//
// Always present: type, bundle, uuid, path, fields and the type's id and
// langcode keys. The revision, published and changed entries only appear when
// the type supports them; moderation state only when set.
func (e *Exporter) Export(rev *content.Revision) (content.Document, error) {
	if rev == nil {
		return nil, fmt.Errorf("export: nil revision: %w", content.ErrNotFound)
	}
	et, ok := e.types.Lookup(rev.TypeID)
	if !ok {
		return nil, fmt.Errorf("export: unknown entity type %q", rev.TypeID)
	}

	doc := content.Document{
		"type":   rev.TypeID,
		"bundle": rev.Bundle,
		"uuid":   rev.UUID,
		"path":   rev.Path,
		"fields": exportFields(rev.Fields),
	}
	doc[keyOr(et.Keys.ID, "id")] = rev.ID
	doc[keyOr(et.Keys.Langcode, "langcode")] = rev.Langcode

	if et.Revisionable {
		doc[keyOr(et.Keys.Revision, "revision")] = rev.RevisionID
	}
	if et.Publishable {
		doc[keyOr(et.Keys.Published, "published")] = rev.Published
	}
	if et.TracksChanged {
		doc["changed"] = rev.Changed
	}
	if rev.ModerationState != "" {
		doc["moderationState"] = rev.ModerationState
	}

	return doc, nil
}

// RevisionID returns the revision id reported for an entity: its revision id
// for revisionable types, 0 otherwise.
func (e *Exporter) RevisionID(rev *content.Revision) int64 {
	if rev == nil {
		return 0
	}
	if et, ok := e.types.Lookup(rev.TypeID); ok && !et.Revisionable {
		return 0
	}
	return rev.RevisionID
}

// Marshal writes a document as canonical JSON.
func Marshal(doc content.Document) ([]byte, error) {
	data, err := content.MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return data, nil
}

func keyOr(key, fallback string) string {
	if key == "" {
		return fallback
	}
	return key
}

func exportFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return (&content.Revision{Fields: fields}).Clone().Fields
}
