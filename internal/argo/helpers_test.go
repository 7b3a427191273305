package argo

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/store"
	"github.com/roach88/argosync/internal/testutil"
)

const testNow = 1700000000

// fakeExporter emits the identity of the revision only.
type fakeExporter struct{}

func (fakeExporter) Export(rev *content.Revision) (content.Document, error) {
	return content.Document{
		"uuid":       rev.UUID,
		"revisionId": rev.RevisionID,
		"langcode":   rev.Langcode,
		"fields":     rev.Fields,
	}, nil
}

func (fakeExporter) RevisionID(rev *content.Revision) int64 {
	return rev.RevisionID
}

// fakeTranslator copies the source into the target language and overlays
// the payload fields.
type fakeTranslator struct{}

func (fakeTranslator) Translate(_ context.Context, src *content.Revision, p content.TranslationPayload) (*content.Revision, error) {
	if p.TargetLangcode == "" {
		return nil, content.ErrInvalidPayload
	}
	candidate := src.Clone()
	candidate.ParentRevisionID = src.RevisionID
	candidate.RevisionID = 0
	candidate.Langcode = p.TargetLangcode
	if candidate.Fields == nil {
		candidate.Fields = map[string]any{}
	}
	for k, v := range p.Fields {
		candidate.Fields[k] = v
	}
	return candidate, nil
}

// fakeOracle moderates every revision with the same workflow.
type fakeOracle struct {
	moderated bool
	initial   string
}

func (o fakeOracle) Moderation(*content.Revision) (content.Moderation, error) {
	return content.Moderation{Moderated: o.moderated, Workflow: "editorial", InitialState: o.initial}, nil
}

// spyStore counts uuid lookups.
type spyStore struct {
	*store.Store
	uniqueKeyCalls int
}

func (s *spyStore) LoadByUniqueKey(ctx context.Context, typeID, key string) ([]*content.Revision, error) {
	s.uniqueKeyCalls++
	return s.Store.LoadByUniqueKey(ctx, typeID, key)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "argo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestService(t *testing.T, entities EntityStore, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithExporter(fakeExporter{}),
		WithTranslator(fakeTranslator{}),
		WithClock(testutil.NewFixedClock(testNow)),
		WithLogger(discardLogger()),
	}
	svc, err := New(entities, testutil.NewTypes(testutil.Article, testutil.Paragraph, testutil.Tag), append(base, opts...)...)
	require.NoError(t, err)
	return svc
}

func save(t *testing.T, s EntityStore, rev *content.Revision) *content.Revision {
	t.Helper()
	saved, err := s.SaveRevision(context.Background(), rev)
	require.NoError(t, err)
	return saved
}

func int64Ptr(v int64) *int64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}
