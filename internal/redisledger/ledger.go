// Package redisledger keeps the deletion ledger in a Redis hash.
//
// Each field of the hash is a deleted entity's uuid; the value is a small JSON
// object with the type id and deletion time. Recording uses HSETNX so the
// first entry for a uuid wins, matching the SQL and badger ledgers.
package redisledger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/argosync/internal/content"
)

// DefaultKey is the hash holding the ledger.
const DefaultKey = "argo:deletions"

// Ledger is a DeletionLog backed by Redis.
type Ledger struct {
	client *redis.Client
	key    string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithKey overrides the hash key, e.g. to share one Redis between sites.
func WithKey(key string) Option {
	return func(l *Ledger) {
		l.key = key
	}
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Ledger {
	l := &Ledger{client: client, key: DefaultKey}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewClient builds a client for addr with the timeouts the CLI uses.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Ping checks the connection.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (l *Ledger) Close() error {
	return l.client.Close()
}

type entry struct {
	TypeID    string `json:"typeId,omitempty"`
	DeletedAt *int64 `json:"deletedAt,omitempty"`
}

// RecordDeletion appends an entry to the ledger.
// Recording an already-logged uuid keeps the first entry.
func (l *Ledger) RecordDeletion(ctx context.Context, d content.Deletion) error {
	data, err := json.Marshal(entry{TypeID: d.TypeID, DeletedAt: d.DeletedAt})
	if err != nil {
		return fmt.Errorf("encode deletion: %w", err)
	}
	if err := l.client.HSetNX(ctx, l.key, d.UUID, data).Err(); err != nil {
		return fmt.Errorf("record deletion: %w", err)
	}
	return nil
}

// Deletions returns every logged deletion ordered by uuid.
func (l *Ledger) Deletions(ctx context.Context) ([]content.Deletion, error) {
	all, err := l.client.HGetAll(ctx, l.key).Result()
	if err != nil {
		return nil, fmt.Errorf("query deletions: %w", err)
	}

	deletions := make([]content.Deletion, 0, len(all))
	for key, raw := range all {
		d := content.Deletion{UUID: key}
		if raw != "" {
			var e entry
			if err := json.Unmarshal([]byte(raw), &e); err != nil {
				return nil, fmt.Errorf("decode deletion %s: %w", key, err)
			}
			d.TypeID = e.TypeID
			d.DeletedAt = e.DeletedAt
		}
		deletions = append(deletions, d)
	}

	slices.SortFunc(deletions, func(a, b content.Deletion) int {
		return strings.Compare(a.UUID, b.UUID)
	})
	return deletions, nil
}

// ClearDeletions removes the given uuids with a single HDEL.
// Unknown uuids are ignored; an empty set is a no-op.
func (l *Ledger) ClearDeletions(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := l.client.HDel(ctx, l.key, keys...).Err(); err != nil {
		return fmt.Errorf("clear deletions: %w", err)
	}
	return nil
}
