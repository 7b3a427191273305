package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/roach88/argosync/internal/argo"
	"github.com/roach88/argosync/internal/config"
	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/exporter"
	"github.com/roach88/argosync/internal/kvstore"
	"github.com/roach88/argosync/internal/redisledger"
	"github.com/roach88/argosync/internal/registry"
	"github.com/roach88/argosync/internal/store"
	"github.com/roach88/argosync/internal/translator"
)

// defaultTypesFile falls back to the built-in registry when absent.
const defaultTypesFile = "types.cue"

// Ledger is a deletion log that can also be appended to.
type Ledger interface {
	argo.DeletionLog
	RecordDeletion(ctx context.Context, d content.Deletion) error
}

// EntityStore is what the CLI needs from a storage backend. Both the SQL
// and badger stores satisfy it.
type EntityStore interface {
	argo.EntityStore
	Ledger
	SetDeletionSink(r content.DeletionRecorder)
	Close() error
}

// Backend is the assembled storage and type registry for one command.
type Backend struct {
	Store    EntityStore
	Ledger   Ledger
	Registry *registry.Registry

	// LedgerName reports where deletions are kept: "store" or "redis".
	LedgerName string

	closers []func() error
}

// OpenBackend opens the configured store, deletion ledger and type registry.
func OpenBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	reg, err := LoadRegistry(cfg.TypesFile)
	if err != nil {
		return nil, err
	}

	b := &Backend{Registry: reg, LedgerName: "store"}

	switch cfg.Store {
	case config.StoreBadger:
		slog.Debug("opening badger store", "dir", cfg.BadgerDir)
		s, err := kvstore.Open(kvstore.Options{Path: cfg.BadgerDir})
		if err != nil {
			return nil, err
		}
		b.Store = s
	default:
		slog.Debug("opening sql store", "driver", cfg.DBDriver)
		s, err := store.OpenDriver(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		b.Store = s
	}
	b.closers = append(b.closers, b.Store.Close)
	b.Ledger = b.Store

	if cfg.RedisAddr != "" {
		l := redisledger.New(redisledger.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		b.closers = append(b.closers, l.Close)
		if err := l.Ping(ctx); err != nil {
			b.Close()
			return nil, err
		}
		b.useLedger(l, "redis")
	}

	return b, nil
}

// useLedger makes l the deletion ledger for reads and for the store's own
// deletions.
func (b *Backend) useLedger(l Ledger, name string) {
	b.Ledger = l
	b.LedgerName = name
	b.Store.SetDeletionSink(l)
}

// LoadRegistry compiles the types file, or the built-in registry when the
// default file does not exist.
func LoadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && path == defaultTypesFile {
		return registry.Default(), nil
	}
	return registry.LoadFile(path)
}

// Service assembles the sync service over the backend.
func (b *Backend) Service(cfg *config.Config, logger *slog.Logger) (*argo.Service, error) {
	oracle, err := b.Registry.Oracle()
	if err != nil {
		return nil, fmt.Errorf("build moderation oracle: %w", err)
	}

	return argo.New(b.Store, b.Registry,
		argo.WithDeletionLog(b.Ledger),
		argo.WithExporter(exporter.New(b.Registry)),
		argo.WithTranslator(translator.New()),
		argo.WithModerationOracle(oracle),
		argo.WithLangcode(cfg.Langcode),
		argo.WithServicePrincipal(cfg.ServicePrincipal),
		argo.WithLogger(logger),
	)
}

// Close releases every opened resource, newest first.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
