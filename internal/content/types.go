package content

import (
	"context"
	"errors"
	"maps"
)

var (
	// ErrNotFound is returned by stores when an entity or revision does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPayload is returned by translators for malformed translation input.
	ErrInvalidPayload = errors.New("invalid payload")
)

// StatePublished is the workflow state id that forces a translation to be published.
const StatePublished = "published"

// FieldKeys binds the logical entity keys to the field names a content type uses.
// For example a node uses {ID: "nid", Revision: "vid", Published: "status"}.
type FieldKeys struct {
	ID        string `json:"id"`
	Revision  string `json:"revision"`
	Published string `json:"published"`
	Langcode  string `json:"langcode"`
}

// EntityType describes a content type and which capabilities it supports.
type EntityType struct {
	ID    string    `json:"id"`
	Label string    `json:"label,omitempty"`
	Keys  FieldKeys `json:"keys"`

	Revisionable  bool `json:"revisionable"`
	Publishable   bool `json:"publishable"`
	TracksChanged bool `json:"tracksChanged"`
	HasOwner      bool `json:"hasOwner"`

	// Fragment marks embedded sub-documents (paragraphs) that are never
	// published on their own.
	Fragment bool `json:"fragment"`
}

// Editorial reports whether the type supports revisions, publication,
// change tracking and languages, which incremental sync requires.
func (t EntityType) Editorial() bool {
	return t.Revisionable && t.Publishable && t.TracksChanged && t.Keys.Langcode != ""
}

// Revision is one snapshot of an entity in one language.
//
// ParentRevisionID is only meaningful for unsaved candidates: it names the
// revision the candidate was derived from so the store can carry the other
// languages forward.
type Revision struct {
	TypeID           string         `json:"typeId" yaml:"type"`
	Bundle           string         `json:"bundle" yaml:"bundle"`
	ID               int64          `json:"id" yaml:"id"`
	RevisionID       int64          `json:"revisionId" yaml:"revisionId"`
	ParentRevisionID int64          `json:"parentRevisionId,omitempty" yaml:"parentRevisionId"`
	UUID             string         `json:"uuid" yaml:"uuid"`
	Langcode         string         `json:"langcode" yaml:"langcode"`
	DefaultLangcode  bool           `json:"defaultLangcode" yaml:"defaultLangcode"`
	Published        bool           `json:"published" yaml:"published"`
	Changed          *int64         `json:"changed" yaml:"changed"`
	Path             string         `json:"path" yaml:"path"`
	OwnerID          string         `json:"ownerId,omitempty" yaml:"owner"`
	ModerationState  string         `json:"moderationState,omitempty" yaml:"moderationState"`
	Fields           map[string]any `json:"fields,omitempty" yaml:"fields"`
}

// Clone returns a deep copy of the revision. Nested field values are copied
// so the clone can be mutated without touching the original.
func (r *Revision) Clone() *Revision {
	if r == nil {
		return nil
	}
	c := *r
	if r.Changed != nil {
		v := *r.Changed
		c.Changed = &v
	}
	c.Fields = cloneFields(r.Fields)
	return &c
}

// SetChanged stores a changed timestamp in epoch seconds.
func (r *Revision) SetChanged(epoch int64) {
	r.Changed = &epoch
}

func cloneFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneFields(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case map[string]string:
		return maps.Clone(val)
	default:
		return val
	}
}

// Summary is the projection of a revision returned by incremental sync.
// Changed is nil when the revision has no change timestamp.
type Summary struct {
	TypeID     string `json:"typeId"`
	Bundle     string `json:"bundle"`
	ID         int64  `json:"id"`
	RevisionID int64  `json:"revisionId"`
	UUID       string `json:"uuid"`
	Path       string `json:"path"`
	Langcode   string `json:"langcode"`
	Changed    *int64 `json:"changed"`
}

// Summarize projects a revision into a sync summary.
func Summarize(r *Revision) Summary {
	s := Summary{
		TypeID:     r.TypeID,
		Bundle:     r.Bundle,
		ID:         r.ID,
		RevisionID: r.RevisionID,
		UUID:       r.UUID,
		Path:       r.Path,
		Langcode:   r.Langcode,
	}
	if r.Changed != nil {
		v := *r.Changed
		s.Changed = &v
	}
	return s
}

// SyncPage is one page of an incremental sync result.
// A nil NextOffset marks the end of the result set.
type SyncPage struct {
	Data       []Summary `json:"data"`
	NextOffset *int      `json:"nextOffset,omitempty"`
	Count      int       `json:"count"`
}

// UpdatedQuery selects the revisions considered by incremental sync.
type UpdatedQuery struct {
	TypeID        string
	Langcode      string
	Since         int64
	OnlyPublished bool
}

// Matches reports whether a revision row passes the query filter.
// Rows without a changed timestamp always match the checkpoint condition.
func (q UpdatedQuery) Matches(r *Revision) bool {
	if r.TypeID != q.TypeID || r.Langcode != q.Langcode {
		return false
	}
	if r.Changed != nil && *r.Changed <= q.Since {
		return false
	}
	if q.OnlyPublished && !r.Published {
		return false
	}
	return true
}

// TranslationPayload is the write-back input produced by the localization pipeline.
type TranslationPayload struct {
	UUID           string         `json:"uuid"`
	RevisionID     *int64         `json:"revisionId,omitempty"`
	StateID        *string        `json:"stateId,omitempty"`
	TargetLangcode string         `json:"targetLangcode"`
	Fields         map[string]any `json:"fields"`
}

// State returns the requested workflow state, or "" when none was given.
func (p TranslationPayload) State() string {
	if p.StateID == nil {
		return ""
	}
	return *p.StateID
}

// Deletion is one deletion ledger entry.
type Deletion struct {
	UUID      string `json:"uuid"`
	TypeID    string `json:"typeId,omitempty"`
	DeletedAt *int64 `json:"deletedAt,omitempty"`
}

// DeletionRecorder appends entries to a deletion ledger kept outside a store.
type DeletionRecorder interface {
	RecordDeletion(ctx context.Context, d Deletion) error
}

// Moderation is the moderation oracle's answer for one entity.
type Moderation struct {
	Moderated    bool
	Workflow     string
	InitialState string
}

// Document is the exported, serializable form of a revision.
type Document map[string]any
