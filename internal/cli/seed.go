package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/argosync/internal/content"
)

// SeedFile is the YAML fixture format.
//
//	entities:
//	  - type: node
//	    bundle: article
//	    uuid: 5c1a...
//	    revisions:
//	      - {langcode: en-US, published: true, changed: 1700000000, fields: {title: Hello}}
//	deletions:
//	  - {uuid: 9f2b..., type: node}
type SeedFile struct {
	Entities  []SeedEntity   `yaml:"entities"`
	Deletions []SeedDeletion `yaml:"deletions"`
}

// SeedEntity is one entity and its revisions, oldest first.
type SeedEntity struct {
	Type      string         `yaml:"type"`
	Bundle    string         `yaml:"bundle"`
	UUID      string         `yaml:"uuid"`
	Revisions []SeedRevision `yaml:"revisions"`
}

// SeedRevision is one language row to commit as a new revision.
type SeedRevision struct {
	Langcode        string         `yaml:"langcode"`
	Published       bool           `yaml:"published"`
	Changed         *int64         `yaml:"changed"`
	Path            string         `yaml:"path"`
	Owner           string         `yaml:"owner"`
	ModerationState string         `yaml:"moderationState"`
	Fields          map[string]any `yaml:"fields"`
}

// SeedDeletion is a ledger entry.
type SeedDeletion struct {
	UUID      string `yaml:"uuid"`
	Type      string `yaml:"type"`
	DeletedAt *int64 `yaml:"deletedAt"`
}

// SeedResult counts what was written.
type SeedResult struct {
	Entities  int `json:"entities"`
	Revisions int `json:"revisions"`
	Deletions int `json:"deletions"`
}

// WriteText implements textRenderer.
func (r SeedResult) WriteText(w io.Writer) {
	fmt.Fprintf(w, "✓ Seeded %d entities, %d revisions, %d deletions\n", r.Entities, r.Revisions, r.Deletions)
}

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load entities and deletions from a YAML fixture",
		Long: `Load fixture content into the configured store.

Each entity's revisions are committed in order; every revision after the
first builds on the entity's latest revision, so a later revision in
another language becomes a translation of the earlier ones.

Example:
  argosync seed --file fixtures/articles.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "path to YAML fixture file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	fixture, err := LoadSeedFile(opts.File)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeFixture, "failed to read fixture", err)
	}

	backend, err := OpenBackend(cmd.Context(), opts.Config)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	result, err := Seed(cmd.Context(), backend, opts.Config.Langcode, fixture)
	if err != nil {
		return formatter.Error(ExitFailure, ErrCodeFixture, "failed to seed store", err)
	}

	formatter.VerboseLog("seeded from %s", opts.File)
	return formatter.Success(result)
}

// LoadSeedFile parses a YAML fixture.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var fixture SeedFile
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &fixture, nil
}

// Seed writes fixture into backend. Revisions without a langcode use
// langcode. Entity types must exist in the backend's registry.
func Seed(ctx context.Context, backend *Backend, langcode string, fixture *SeedFile) (SeedResult, error) {
	var result SeedResult

	for i, ent := range fixture.Entities {
		if _, ok := backend.Registry.Lookup(ent.Type); !ok {
			return result, fmt.Errorf("entities[%d]: unknown entity type %q", i, ent.Type)
		}
		if len(ent.Revisions) == 0 {
			return result, fmt.Errorf("entities[%d]: no revisions", i)
		}

		var id int64
		for j, r := range ent.Revisions {
			rev := &content.Revision{
				TypeID:          ent.Type,
				Bundle:          ent.Bundle,
				ID:              id,
				UUID:            ent.UUID,
				Langcode:        r.Langcode,
				Published:       r.Published,
				Changed:         r.Changed,
				Path:            r.Path,
				OwnerID:         r.Owner,
				ModerationState: r.ModerationState,
				Fields:          r.Fields,
			}
			if rev.Langcode == "" {
				rev.Langcode = langcode
			}
			if rev.Fields == nil {
				rev.Fields = map[string]any{}
			}

			saved, err := backend.Store.SaveRevision(ctx, rev)
			if err != nil {
				return result, fmt.Errorf("entities[%d].revisions[%d]: %w", i, j, err)
			}
			id = saved.ID
			result.Revisions++
			slog.Debug("seeded revision", "type", saved.TypeID, "id", saved.ID,
				"revision", saved.RevisionID, "langcode", saved.Langcode)
		}
		result.Entities++
	}

	for i, d := range fixture.Deletions {
		if d.UUID == "" {
			return result, fmt.Errorf("deletions[%d]: uuid is required", i)
		}
		if err := backend.Ledger.RecordDeletion(ctx, content.Deletion{
			UUID:      d.UUID,
			TypeID:    d.Type,
			DeletedAt: d.DeletedAt,
		}); err != nil {
			return result, fmt.Errorf("deletions[%d]: %w", i, err)
		}
		result.Deletions++
	}

	return result, nil
}
