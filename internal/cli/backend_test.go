package cli

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/argosync/internal/config"
	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/testutil"
)

type entityDeleter interface {
	DeleteEntity(ctx context.Context, typeID string, id int64) error
}

type memoryLedger struct {
	entries []content.Deletion
}

func (l *memoryLedger) RecordDeletion(_ context.Context, d content.Deletion) error {
	l.entries = append(l.entries, d)
	return nil
}

func (l *memoryLedger) Deletions(context.Context) ([]content.Deletion, error) {
	return l.entries, nil
}

func (l *memoryLedger) ClearDeletions(_ context.Context, keys []string) error {
	l.entries = nil
	return nil
}

// deleteThroughBackend saves a node, deletes it via the backend's store and
// returns its uuid.
func deleteThroughBackend(t *testing.T, b *Backend) string {
	t.Helper()
	ctx := context.Background()

	saved, err := b.Store.SaveRevision(ctx, testutil.NewRevision("node", "en-US", testutil.WithChanged(100)))
	require.NoError(t, err)

	d, ok := b.Store.(entityDeleter)
	require.True(t, ok, "store %T cannot delete entities", b.Store)
	require.NoError(t, d.DeleteEntity(ctx, "node", saved.ID))
	return saved.UUID
}

func TestBackend_DeletionsReachConfiguredLedger(t *testing.T) {
	for name, cfg := range map[string]*config.Config{
		"sql":    testConfig(t),
		"badger": badgerConfig(t),
	} {
		t.Run(name, func(t *testing.T) {
			b, err := OpenBackend(context.Background(), cfg)
			require.NoError(t, err)
			defer b.Close()

			ledger := &memoryLedger{}
			b.useLedger(ledger, "memory")

			key := deleteThroughBackend(t, b)

			deletions, err := b.Ledger.Deletions(context.Background())
			require.NoError(t, err)
			require.Len(t, deletions, 1)
			assert.Equal(t, key, deletions[0].UUID)
			assert.Equal(t, "node", deletions[0].TypeID)

			own, err := b.Store.Deletions(context.Background())
			require.NoError(t, err)
			assert.Empty(t, own)
		})
	}
}

func TestBackend_StoreLedgerByDefault(t *testing.T) {
	b, err := OpenBackend(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, "store", b.LedgerName)
	key := deleteThroughBackend(t, b)

	deletions, err := b.Ledger.Deletions(context.Background())
	require.NoError(t, err)
	require.Len(t, deletions, 1)
	assert.Equal(t, key, deletions[0].UUID)
}

func TestBackend_RedisLedgerReceivesDeletions(t *testing.T) {
	addr := os.Getenv("ARGO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ARGO_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.RedisAddr = addr
	cfg.RedisDB = 14

	b, err := OpenBackend(ctx, cfg)
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer b.Close()
	require.Equal(t, "redis", b.LedgerName)

	key := deleteThroughBackend(t, b)
	t.Cleanup(func() { _ = b.Ledger.ClearDeletions(context.Background(), []string{key}) })

	deletions, err := b.Ledger.Deletions(ctx)
	require.NoError(t, err)
	var found bool
	for _, d := range deletions {
		if d.UUID == key {
			found = true
			assert.Equal(t, "node", d.TypeID)
		}
	}
	assert.True(t, found, "deletion %s missing from redis ledger", key)
}
