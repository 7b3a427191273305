package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/argosync/internal/content"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	t.Cleanup(func() { s.Close() })
	return s
}

func testRevision(langcode string, published bool, changed *int64) *content.Revision {
	return &content.Revision{
		TypeID:    "node",
		Bundle:    "article",
		Langcode:  langcode,
		Published: published,
		Changed:   changed,
		Path:      "/node/article",
		Fields:    map[string]any{"title": "Hello"},
	}
}

func ts(v int64) *int64 {
	return &v
}

func save(t *testing.T, s *Store, rev *content.Revision) *content.Revision {
	t.Helper()
	saved, err := s.SaveRevision(context.Background(), rev)
	require.NoError(t, err)
	return saved
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{Path: dir})
	require.NoError(t, err)
	saved := save(t, s, testRevision("en-US", true, ts(100)))
	require.NoError(t, s.Close())

	reopened, err := Open(Options{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(context.Background(), "node", saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.UUID, got.UUID)

	// Sequences survive a reopen.
	next := save(t, reopened, testRevision("en-US", true, ts(200)))
	assert.Equal(t, int64(2), next.ID)
	assert.Equal(t, int64(2), next.RevisionID)
}

func TestKeys_SortNumerically(t *testing.T) {
	assert.Less(t, string(revisionKey("node", 9, "en-US")), string(revisionKey("node", 10, "en-US")))
	assert.Less(t, string(entityKey("node", 2)), string(entityKey("node", 11)))
}

func TestCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SaveRevision(ctx, testRevision("en-US", true, ts(100)))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Load(ctx, "node", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
