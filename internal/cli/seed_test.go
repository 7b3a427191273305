package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/argosync/internal/argo"
	"github.com/roach88/argosync/internal/config"
)

func TestLoadSeedFile(t *testing.T) {
	fixture, err := LoadSeedFile("testdata/seed.yaml")
	require.NoError(t, err)

	require.Len(t, fixture.Entities, 2)
	assert.Equal(t, "node", fixture.Entities[0].Type)
	require.Len(t, fixture.Entities[0].Revisions, 2)
	assert.Equal(t, "fr", fixture.Entities[0].Revisions[1].Langcode)
	require.NotNil(t, fixture.Entities[0].Revisions[0].Changed)
	assert.Equal(t, int64(1700000000), *fixture.Entities[0].Revisions[0].Changed)
	require.Len(t, fixture.Deletions, 1)
}

func TestSeedCommand(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  func(*testing.T) *config.Config
	}{
		{"sql", testConfig},
		{"badger", badgerConfig},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg(t)

			buf := &bytes.Buffer{}
			cmd := NewSeedCommand(&RootOptions{Format: "json", Config: cfg})
			cmd.SetOut(buf)
			cmd.SetArgs([]string{"--file", "testdata/seed.yaml"})
			require.NoError(t, cmd.Execute())

			var resp struct {
				Status string     `json:"status"`
				Data   SeedResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, SeedResult{Entities: 2, Revisions: 3, Deletions: 1}, resp.Data)

			// The seeded store serves the sync operations.
			ctx := context.Background()
			backend, err := OpenBackend(ctx, cfg)
			require.NoError(t, err)
			defer backend.Close()

			svc, err := backend.Service(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
			require.NoError(t, err)

			page, err := svc.GetUpdated(ctx, "node", false, 0, 10, 0)
			require.NoError(t, err)
			assert.Equal(t, 1, page.Count)
			require.Len(t, page.Data, 1)
			assert.Equal(t, "00000000-0000-4000-8000-000000000001", page.Data[0].UUID)

			log, err := svc.GetDeletionLog(ctx)
			require.NoError(t, err)
			require.Len(t, log.Deleted, 1)
			assert.Equal(t, "00000000-0000-4000-8000-0000000000ff", log.Deleted[0].UUID)

			doc, err := svc.Export(ctx, "node", "00000000-0000-4000-8000-000000000001", nil)
			require.NoError(t, err)
			assert.Equal(t, "Hello", doc["fields"].(map[string]any)["title"])

			_, err = svc.GetUpdated(ctx, "widget", false, 0, 10, 0)
			assert.True(t, argo.IsUnsupportedType(err))
		})
	}
}

func TestSeedUnknownType(t *testing.T) {
	cfg := testConfig(t)
	backend, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer backend.Close()

	_, err = Seed(context.Background(), backend, "en-US", &SeedFile{
		Entities: []SeedEntity{{Type: "widget", Revisions: []SeedRevision{{Published: true}}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown entity type "widget"`)
}

func TestSeedDeletionRequiresUUID(t *testing.T) {
	cfg := testConfig(t)
	backend, err := OpenBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer backend.Close()

	_, err = Seed(context.Background(), backend, "en-US", &SeedFile{Deletions: []SeedDeletion{{Type: "node"}}})
	assert.Error(t, err)
}

func TestSeedMissingFileFlag(t *testing.T) {
	cmd := NewSeedCommand(&RootOptions{Format: "text", Config: testConfig(t)})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestSeedMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSeedCommand(&RootOptions{Format: "text", Config: testConfig(t)})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--file", "testdata/missing.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "failed to read fixture")
}
