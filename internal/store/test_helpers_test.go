package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/argosync/internal/content"
)

// createTestStore opens a fresh SQLite store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRevision builds an unsaved node revision.
func createTestRevision(langcode string, published bool, changed *int64) *content.Revision {
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

// mustSave saves rev and fails the test on error.
func mustSave(t *testing.T, s *Store, rev *content.Revision) *content.Revision {
	t.Helper()
	saved, err := s.SaveRevision(context.Background(), rev)
	if err != nil {
		t.Fatalf("SaveRevision() failed: %v", err)
	}
	return saved
}
