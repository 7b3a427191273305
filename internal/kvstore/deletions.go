package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/argosync/internal/content"
)

var deletionPrefix = []byte("del/")

func deletionKey(key string) []byte {
	return append(append([]byte(nil), deletionPrefix...), key...)
}

// RecordDeletion appends an entry to the deletion ledger.
// Recording an already-logged uuid keeps the first entry.
func (s *Store) RecordDeletion(ctx context.Context, d content.Deletion) error {
	err := s.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get(deletionKey(d.UUID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setJSON(txn, deletionKey(d.UUID), d)
	})
	if err != nil {
		return fmt.Errorf("record deletion: %w", err)
	}
	return nil
}

// Deletions returns every logged deletion ordered by uuid.
func (s *Store) Deletions(ctx context.Context) ([]content.Deletion, error) {
	deletions := []content.Deletion{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, deletionPrefix, func(_, val []byte) error {
			var d content.Deletion
			if err := decodeJSON(val, &d); err != nil {
				return fmt.Errorf("decode deletion: %w", err)
			}
			deletions = append(deletions, d)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("query deletions: %w", err)
	}
	return deletions, nil
}

// ClearDeletions removes the given uuids from the ledger in one transaction.
// Unknown uuids are ignored; an empty set is a no-op.
func (s *Store) ClearDeletions(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete(deletionKey(k)); err != nil {
				return fmt.Errorf("delete ledger entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear deletions: %w", err)
	}
	return nil
}
