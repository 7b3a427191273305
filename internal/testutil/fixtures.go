package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/argosync/internal/content"
)

// Article is an editorial node type: revisionable, publishable, tracks
// changed and owner.
var Article = content.EntityType{
	ID:            "node",
	Label:         "Content",
	Keys:          content.FieldKeys{ID: "nid", Revision: "vid", Published: "status", Langcode: "langcode"},
	Revisionable:  true,
	Publishable:   true,
	TracksChanged: true,
	HasOwner:      true,
}

// Paragraph is an editorial fragment type that is never published on its own.
var Paragraph = content.EntityType{
	ID:            "paragraph",
	Label:         "Paragraph",
	Keys:          content.FieldKeys{ID: "id", Revision: "revision_id", Published: "status", Langcode: "langcode"},
	Revisionable:  true,
	Publishable:   true,
	TracksChanged: true,
	Fragment:      true,
}

// Tag is a non-editorial type without revisions or publication.
var Tag = content.EntityType{
	ID:    "taxonomy_term",
	Label: "Taxonomy term",
	Keys:  content.FieldKeys{ID: "tid", Langcode: "langcode"},
}

// Types is a map-backed type registry.
type Types map[string]content.EntityType

// NewTypes builds a registry from descriptors.
func NewTypes(types ...content.EntityType) Types {
	r := make(Types, len(types))
	for _, t := range types {
		r[t.ID] = t
	}
	return r
}

// Lookup implements argo.TypeRegistry.
func (r Types) Lookup(typeID string) (content.EntityType, bool) {
	t, ok := r[typeID]
	return t, ok
}

// UUIDSequence hands out deterministic, well-formed v4 uuids.
//
// The n-th call to Next returns 00000000-0000-4000-8000-<n as 12 hex digits>.
// Golden files depend on this format.
//
// Thread-safety: Next is safe for concurrent use.
type UUIDSequence struct {
	mu sync.Mutex
	n  int64
}

// Next returns the next uuid in the sequence, starting at 1.
func (s *UUIDSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("00000000-0000-4000-8000-%012x", s.n)
}

// RevisionOption mutates a revision built by NewRevision.
type RevisionOption func(*content.Revision)

// NewRevision builds an unsaved revision of typeID in langcode.
// Defaults: bundle "article", unpublished, changed NULL, no fields.
func NewRevision(typeID, langcode string, opts ...RevisionOption) *content.Revision {
	rev := &content.Revision{
		TypeID:   typeID,
		Bundle:   "article",
		Langcode: langcode,
		Fields:   map[string]any{},
	}
	for _, opt := range opts {
		opt(rev)
	}
	return rev
}

// WithEntity targets an existing entity id.
func WithEntity(id int64) RevisionOption {
	return func(r *content.Revision) { r.ID = id }
}

// WithUUID sets the entity uuid.
func WithUUID(key string) RevisionOption {
	return func(r *content.Revision) { r.UUID = key }
}

// WithChanged sets the changed timestamp.
func WithChanged(epoch int64) RevisionOption {
	return func(r *content.Revision) { r.SetChanged(epoch) }
}

// Published marks the revision published.
func Published() RevisionOption {
	return func(r *content.Revision) { r.Published = true }
}

// WithField sets one field value.
func WithField(name string, value any) RevisionOption {
	return func(r *content.Revision) { r.Fields[name] = value }
}

// WithPath sets the canonical path.
func WithPath(path string) RevisionOption {
	return func(r *content.Revision) { r.Path = path }
}

// WithBundle sets the bundle.
func WithBundle(bundle string) RevisionOption {
	return func(r *content.Revision) { r.Bundle = bundle }
}
