package argo

import (
	"context"
	"time"

	"github.com/roach88/argosync/internal/content"
)

// EntityStore is revisioned, multi-language entity storage.
//
// Implemented by store.Store (SQL) and kvstore.Store (badger).
type EntityStore interface {
	// Load returns the current revision of an entity in its default language.
	Load(ctx context.Context, typeID string, id int64) (*content.Revision, error)

	// LoadByUniqueKey returns the current revision of every entity with the
	// given uuid, ordered by entity id.
	LoadByUniqueKey(ctx context.Context, typeID, key string) ([]*content.Revision, error)

	// LoadRevision returns one revision in its default language.
	LoadRevision(ctx context.Context, typeID string, revisionID int64) (*content.Revision, error)

	// LatestRevisionID returns the highest revision id of an entity.
	// Returns content.ErrNotFound if the entity has no revisions.
	LatestRevisionID(ctx context.Context, typeID string, id int64) (int64, error)

	// LoadRevisions bulk-loads revisions, keeping input order and skipping
	// unknown ids.
	LoadRevisions(ctx context.Context, typeID string, revisionIDs []int64) ([]*content.Revision, error)

	// RankedRevisionIDs returns the top-ranked qualifying revision id per
	// entity, ascending. Ranking follows content.RankedBefore.
	RankedRevisionIDs(ctx context.Context, q content.UpdatedQuery) ([]int64, error)

	// SaveRevision commits rev as a new revision and returns the stored copy.
	SaveRevision(ctx context.Context, rev *content.Revision) (*content.Revision, error)
}

// DeletionLog is the append-only ledger of deleted entity uuids.
type DeletionLog interface {
	Deletions(ctx context.Context) ([]content.Deletion, error)
	ClearDeletions(ctx context.Context, keys []string) error
}

// Exporter serializes revisions for the localization pipeline.
type Exporter interface {
	Export(rev *content.Revision) (content.Document, error)
	RevisionID(rev *content.Revision) int64
}

// Translator builds an unsaved translated revision from a source revision.
type Translator interface {
	Translate(ctx context.Context, src *content.Revision, p content.TranslationPayload) (*content.Revision, error)
}

// ModerationOracle reports whether a revision is under editorial moderation.
type ModerationOracle interface {
	Moderation(rev *content.Revision) (content.Moderation, error)
}

// TypeRegistry resolves entity type ids to descriptors.
type TypeRegistry interface {
	Lookup(typeID string) (content.EntityType, bool)
}

// Clock supplies the time stamped on translated revisions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// unmoderated is the oracle used when none is configured.
type unmoderated struct{}

func (unmoderated) Moderation(*content.Revision) (content.Moderation, error) {
	return content.Moderation{}, nil
}
