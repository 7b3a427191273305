package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/argosync/internal/content"
	"github.com/roach88/argosync/internal/querysql"
)

// RecordDeletion appends an entry to the deletion ledger.
// Recording an already-logged uuid is a no-op.
func (s *Store) RecordDeletion(ctx context.Context, d content.Deletion) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insertDeletionTx(ctx, tx, d)
	})
	if err != nil {
		return fmt.Errorf("record deletion: %w", err)
	}
	return nil
}

func (s *Store) insertDeletionTx(ctx context.Context, tx *sql.Tx, d content.Deletion) error {
	insert := `INSERT INTO entity_deletions (uuid, type_id, deleted_at) VALUES (?, ?, ?)
		ON CONFLICT(uuid) DO NOTHING`
	if s.dialect == querysql.DialectMySQL {
		insert = `INSERT IGNORE INTO entity_deletions (uuid, type_id, deleted_at) VALUES (?, ?, ?)`
	}

	if _, err := tx.ExecContext(ctx, s.rebind(insert), d.UUID, d.TypeID, nullableChanged(d.DeletedAt)); err != nil {
		return fmt.Errorf("insert deletion: %w", err)
	}
	return nil
}

// Deletions returns every logged deletion ordered by uuid.
// Returns an empty slice (not nil) when the ledger is empty.
func (s *Store) Deletions(ctx context.Context) ([]content.Deletion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uuid, type_id, deleted_at FROM entity_deletions
		ORDER BY uuid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query deletions: %w", err)
	}
	defer rows.Close()

	deletions := []content.Deletion{}
	for rows.Next() {
		var (
			d         content.Deletion
			deletedAt sql.NullInt64
		)
		if err := rows.Scan(&d.UUID, &d.TypeID, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan deletion: %w", err)
		}
		if deletedAt.Valid {
			v := deletedAt.Int64
			d.DeletedAt = &v
		}
		deletions = append(deletions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deletions: %w", err)
	}

	return deletions, nil
}

// ClearDeletions removes the given uuids from the ledger in one transaction.
// Unknown uuids are ignored; an empty set is a no-op.
func (s *Store) ClearDeletions(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(keys); start += maxInParams {
			end := min(start+maxInParams, len(keys))
			chunk := keys[start:end]

			args := make([]any, len(chunk))
			for i, k := range chunk {
				args[i] = k
			}

			if _, err := tx.ExecContext(ctx, s.rebind(`
				DELETE FROM entity_deletions WHERE uuid IN (`+placeholders(len(chunk))+`)
			`), args...); err != nil {
				return fmt.Errorf("delete ledger rows: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear deletions: %w", err)
	}
	return nil
}
