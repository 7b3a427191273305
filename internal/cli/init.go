package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/argosync/internal/config"
)

// InitResult describes the backend that init prepared.
type InitResult struct {
	Store     string `json:"store"`
	Driver    string `json:"driver,omitempty"`
	Ledger    string `json:"ledger"`
	Langcode  string `json:"langcode"`
	Types     int    `json:"types"`
	Workflows int    `json:"workflows"`
}

// WriteText implements textRenderer.
func (r InitResult) WriteText(w io.Writer) {
	store := r.Store
	if r.Driver != "" {
		store += " (" + r.Driver + ")"
	}
	fmt.Fprintf(w, "✓ Store ready: %s\n", store)
	fmt.Fprintf(w, "  deletion ledger: %s\n", r.Ledger)
	fmt.Fprintf(w, "  canonical language: %s\n", r.Langcode)
	fmt.Fprintf(w, "  %d entity type(s), %d workflow(s)\n", r.Types, r.Workflows)
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or migrate the entity store",
		Long: `Open the configured store, applying its schema and migrations, and check
that the type registry, moderation workflows and deletion ledger can be
assembled into a sync service.

Example:
  ARGO_DB_DSN=./argo.db argosync init
  ARGO_STORE=badger ARGO_BADGER_DIR=./data argosync init --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.Config

	backend, err := OpenBackend(cmd.Context(), cfg)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, "failed to open store", err)
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	svc, err := backend.Service(cfg, slog.Default())
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeTypes, "failed to assemble sync service", err)
	}

	result := InitResult{
		Store:     cfg.Store,
		Ledger:    backend.LedgerName,
		Langcode:  svc.Langcode(),
		Types:     len(backend.Registry.Types()),
		Workflows: len(backend.Registry.Workflows()),
	}
	if cfg.Store == config.StoreSQL {
		result.Driver = cfg.DBDriver
	}

	formatter.VerboseLog("store %s ready", result.Store)
	return formatter.Success(result)
}
