package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/argosync/internal/content"
)

func TestSaveRevision_NewEntity(t *testing.T) {
	s := newTestStore(t)

	saved := save(t, s, testRevision("en-US", true, ts(100)))

	assert.Equal(t, int64(1), saved.ID)
	assert.Equal(t, int64(1), saved.RevisionID)
	assert.NotEmpty(t, saved.UUID)
	assert.True(t, saved.DefaultLangcode)
}

func TestSaveRevision_UnknownEntity(t *testing.T) {
	s := newTestStore(t)

	rev := testRevision("en-US", true, ts(100))
	rev.ID = 99
	_, err := s.SaveRevision(context.Background(), rev)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestSaveRevision_DoesNotMutateInput(t *testing.T) {
	s := newTestStore(t)

	rev := testRevision("en-US", true, ts(100))
	save(t, s, rev)

	assert.Zero(t, rev.ID)
	assert.Zero(t, rev.RevisionID)
	assert.Empty(t, rev.UUID)
}

func TestSaveRevision_TranslationCarriesOtherLanguages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	source := save(t, s, testRevision("en-US", true, ts(100)))

	fr := testRevision("fr", false, ts(200))
	fr.ID = source.ID
	fr.ParentRevisionID = source.RevisionID
	fr.Fields = map[string]any{"title": "Bonjour", "weight": int64(3)}
	saved := save(t, s, fr)

	assert.Equal(t, int64(2), saved.RevisionID)
	assert.False(t, saved.DefaultLangcode)
	assert.Equal(t, source.UUID, saved.UUID)

	carried, err := s.LoadTranslation(ctx, "node", saved.RevisionID, "en-US")
	require.NoError(t, err)
	assert.Equal(t, "Hello", carried.Fields["title"])
	assert.True(t, carried.DefaultLangcode)

	translated, err := s.LoadTranslation(ctx, "node", saved.RevisionID, "fr")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", translated.Fields["title"])
	assert.Equal(t, int64(3), translated.Fields["weight"])

	_, err = s.LoadTranslation(ctx, "node", source.RevisionID, "fr")
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestSaveRevision_CurrentPointer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	source := save(t, s, testRevision("en-US", true, ts(100)))

	draft := testRevision("en-US", false, ts(200))
	draft.ID = source.ID
	save(t, s, draft)

	current, err := s.Load(ctx, "node", source.ID)
	require.NoError(t, err)
	assert.Equal(t, source.RevisionID, current.RevisionID, "draft must not replace a published revision")

	latest, err := s.LatestRevisionID(ctx, "node", source.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest)

	published := testRevision("en-US", true, ts(300))
	published.ID = source.ID
	published = save(t, s, published)

	current, err = s.Load(ctx, "node", source.ID)
	require.NoError(t, err)
	assert.Equal(t, published.RevisionID, current.RevisionID)
}

func TestSaveRevision_RevisionIDsArePerType(t *testing.T) {
	s := newTestStore(t)

	save(t, s, testRevision("en-US", true, ts(100)))

	media := testRevision("en-US", true, ts(100))
	media.TypeID = "media"
	saved := save(t, s, media)

	assert.Equal(t, int64(1), saved.ID)
	assert.Equal(t, int64(1), saved.RevisionID)
}

func TestDeleteEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := save(t, s, testRevision("en-US", true, ts(100)))
	fr := testRevision("fr", true, ts(200))
	fr.ID = saved.ID
	fr = save(t, s, fr)

	require.NoError(t, s.DeleteEntity(ctx, "node", saved.ID))

	_, err := s.Load(ctx, "node", saved.ID)
	assert.ErrorIs(t, err, content.ErrNotFound)
	_, err = s.LoadTranslation(ctx, "node", fr.RevisionID, "fr")
	assert.ErrorIs(t, err, content.ErrNotFound)

	matches, err := s.LoadByUniqueKey(ctx, "node", saved.UUID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	deletions, err := s.Deletions(ctx)
	require.NoError(t, err)
	require.Len(t, deletions, 1)
	assert.Equal(t, saved.UUID, deletions[0].UUID)
	assert.Equal(t, "node", deletions[0].TypeID)
	require.NotNil(t, deletions[0].DeletedAt)
	assert.Equal(t, int64(1700000000), *deletions[0].DeletedAt)
}

func TestDeleteEntity_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteEntity(context.Background(), "node", 42)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

type recordedDeletions struct {
	entries []content.Deletion
}

func (r *recordedDeletions) RecordDeletion(_ context.Context, d content.Deletion) error {
	r.entries = append(r.entries, d)
	return nil
}

func TestDeleteEntity_SinkReceivesDeletion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sink := &recordedDeletions{}
	s.SetDeletionSink(sink)

	saved := save(t, s, testRevision("en-US", true, ts(100)))
	require.NoError(t, s.DeleteEntity(ctx, "node", saved.ID))

	require.Len(t, sink.entries, 1)
	assert.Equal(t, saved.UUID, sink.entries[0].UUID)
	assert.Equal(t, "node", sink.entries[0].TypeID)
	require.NotNil(t, sink.entries[0].DeletedAt)
	assert.Equal(t, int64(1700000000), *sink.entries[0].DeletedAt)

	deletions, err := s.Deletions(ctx)
	require.NoError(t, err)
	assert.Empty(t, deletions)
}
