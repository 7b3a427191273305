package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/argosync/internal/content"
)

// SaveRevision commits rev as a new revision and returns the stored copy with
// its allocated ids.
//
// When rev.ID is 0 a new entity is created; its uuid is rev.UUID or a fresh
// UUIDv4. Otherwise the entity must exist (content.ErrNotFound).
//
// The new revision carries forward every other language row of
// rev.ParentRevisionID (or of the latest revision when no parent is given),
// then writes rev's own language row. Existing rows are never modified.
func (s *Store) SaveRevision(ctx context.Context, rev *content.Revision) (*content.Revision, error) {
	saved := rev.Clone()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		isNew := saved.ID == 0
		if isNew {
			if err := s.insertEntityTx(ctx, tx, saved); err != nil {
				return err
			}
		} else if err := s.loadEntityTx(ctx, tx, saved); err != nil {
			return err
		}

		next, err := s.nextIDTx(ctx, tx, saved.TypeID, "revision", `
			SELECT COALESCE(MAX(revision_id), 0) FROM entity_revisions WHERE type_id = ?
		`)
		if err != nil {
			return fmt.Errorf("allocate revision id: %w", err)
		}

		if !isNew {
			if err := s.carryForwardTx(ctx, tx, saved, next); err != nil {
				return err
			}
		} else {
			saved.DefaultLangcode = true
		}
		saved.RevisionID = next
		saved.ParentRevisionID = 0

		if err := s.insertRevisionTx(ctx, tx, saved); err != nil {
			return err
		}

		return s.advanceCurrentTx(ctx, tx, saved, isNew)
	})
	if err != nil {
		return nil, fmt.Errorf("save revision %s: %w", rev.TypeID, err)
	}

	return saved, nil
}

func (s *Store) insertEntityTx(ctx context.Context, tx *sql.Tx, rev *content.Revision) error {
	id, err := s.nextIDTx(ctx, tx, rev.TypeID, "entity", `
		SELECT COALESCE(MAX(id), 0) FROM entities WHERE type_id = ?
	`)
	if err != nil {
		return fmt.Errorf("allocate entity id: %w", err)
	}
	rev.ID = id
	if rev.UUID == "" {
		rev.UUID = uuid.NewString()
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO entities (type_id, id, uuid, bundle, current_revision_id)
		VALUES (?, ?, ?, ?, 0)
	`), rev.TypeID, rev.ID, rev.UUID, rev.Bundle)
	if err != nil {
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

// nextIDTx increments the (typeID, name) counter and returns the new value.
// A missing counter starts from seedQuery, the current maximum, so databases
// created before the counters existed keep counting upward.
func (s *Store) nextIDTx(ctx context.Context, tx *sql.Tx, typeID, name, seedQuery string) (int64, error) {
	res, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE entity_sequences SET value = value + 1 WHERE type_id = ? AND name = ?
	`), typeID, name)
	if err != nil {
		return 0, fmt.Errorf("bump sequence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bump sequence: %w", err)
	}

	if n == 0 {
		var seed int64
		if err := tx.QueryRowContext(ctx, s.rebind(seedQuery), typeID).Scan(&seed); err != nil {
			return 0, fmt.Errorf("seed sequence: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO entity_sequences (type_id, name, value) VALUES (?, ?, ?)
		`), typeID, name, seed+1); err != nil {
			return 0, fmt.Errorf("create sequence: %w", err)
		}
		return seed + 1, nil
	}

	var value int64
	if err := tx.QueryRowContext(ctx, s.rebind(`
		SELECT value FROM entity_sequences WHERE type_id = ? AND name = ?
	`), typeID, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	return value, nil
}

// loadEntityTx fills the entity-level identity (uuid, bundle) from storage.
func (s *Store) loadEntityTx(ctx context.Context, tx *sql.Tx, rev *content.Revision) error {
	err := tx.QueryRowContext(ctx, s.rebind(`
		SELECT uuid, bundle FROM entities WHERE type_id = ? AND id = ?
	`), rev.TypeID, rev.ID).Scan(&rev.UUID, &rev.Bundle)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("entity %d: %w", rev.ID, content.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load entity: %w", err)
	}
	return nil
}

// carryForwardTx copies the other language rows of the parent revision into
// the new revision, and keeps rev's default-language flag consistent with the
// parent's row for the same language.
func (s *Store) carryForwardTx(ctx context.Context, tx *sql.Tx, rev *content.Revision, next int64) error {
	parent := rev.ParentRevisionID
	if parent == 0 {
		if err := tx.QueryRowContext(ctx, s.rebind(`
			SELECT COALESCE(MAX(revision_id), 0) FROM entity_revisions WHERE type_id = ? AND id = ?
		`), rev.TypeID, rev.ID).Scan(&parent); err != nil {
			return fmt.Errorf("find parent revision: %w", err)
		}
	}
	if parent == 0 {
		rev.DefaultLangcode = true
		return nil
	}

	var parentDefault int
	err := tx.QueryRowContext(ctx, s.rebind(`
		SELECT default_langcode FROM entity_revisions
		WHERE type_id = ? AND revision_id = ? AND langcode = ?
	`), rev.TypeID, parent, rev.Langcode).Scan(&parentDefault)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rev.DefaultLangcode = false
	case err != nil:
		return fmt.Errorf("load parent language row: %w", err)
	default:
		rev.DefaultLangcode = parentDefault != 0
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO entity_revisions
		(type_id, revision_id, id, langcode, default_langcode, published, changed,
		 path, owner_id, moderation_state, fields)
		SELECT type_id, ?, id, langcode, default_langcode, published, changed,
		       path, owner_id, moderation_state, fields
		FROM entity_revisions
		WHERE type_id = ? AND revision_id = ? AND id = ? AND langcode <> ?
	`), next, rev.TypeID, parent, rev.ID, rev.Langcode)
	if err != nil {
		return fmt.Errorf("carry forward translations: %w", err)
	}
	return nil
}

func (s *Store) insertRevisionTx(ctx context.Context, tx *sql.Tx, rev *content.Revision) error {
	fieldsJSON, err := marshalFields(rev.Fields)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO entity_revisions
		(type_id, revision_id, id, langcode, default_langcode, published, changed,
		 path, owner_id, moderation_state, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		rev.TypeID,
		rev.RevisionID,
		rev.ID,
		rev.Langcode,
		boolToInt(rev.DefaultLangcode),
		boolToInt(rev.Published),
		nullableChanged(rev.Changed),
		rev.Path,
		rev.OwnerID,
		rev.ModerationState,
		fieldsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// advanceCurrentTx moves the entity's current revision pointer to rev when rev
// is published or the current revision is not.
func (s *Store) advanceCurrentTx(ctx context.Context, tx *sql.Tx, rev *content.Revision, isNew bool) error {
	advance := isNew || rev.Published
	if !advance {
		var currentPublished sql.NullInt64
		err := tx.QueryRowContext(ctx, s.rebind(`
			SELECT MAX(r.published) FROM entities e
			JOIN entity_revisions r ON r.type_id = e.type_id AND r.revision_id = e.current_revision_id
			WHERE e.type_id = ? AND e.id = ? AND r.default_langcode = 1
		`), rev.TypeID, rev.ID).Scan(&currentPublished)
		if err != nil {
			return fmt.Errorf("load current revision state: %w", err)
		}
		advance = !currentPublished.Valid || currentPublished.Int64 == 0
	}
	if !advance {
		return nil
	}

	_, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE entities SET current_revision_id = ? WHERE type_id = ? AND id = ?
	`), rev.RevisionID, rev.TypeID, rev.ID)
	if err != nil {
		return fmt.Errorf("advance current revision: %w", err)
	}
	return nil
}

// DeleteEntity removes an entity with all its revisions and appends its uuid
// to the deletion ledger in the same transaction. With a deletion sink set,
// the entry goes to the sink once the transaction commits.
// Returns content.ErrNotFound if the entity does not exist.
func (s *Store) DeleteEntity(ctx context.Context, typeID string, id int64) error {
	var entry content.Deletion
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var key string
		err := tx.QueryRowContext(ctx, s.rebind(`
			SELECT uuid FROM entities WHERE type_id = ? AND id = ?
		`), typeID, id).Scan(&key)
		if errors.Is(err, sql.ErrNoRows) {
			return content.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load entity: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`
			DELETE FROM entity_revisions WHERE type_id = ? AND id = ?
		`), typeID, id); err != nil {
			return fmt.Errorf("delete revisions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			DELETE FROM entities WHERE type_id = ? AND id = ?
		`), typeID, id); err != nil {
			return fmt.Errorf("delete entity: %w", err)
		}

		deletedAt := s.now().Unix()
		entry = content.Deletion{UUID: key, TypeID: typeID, DeletedAt: &deletedAt}
		if s.sink != nil {
			return nil
		}
		return s.insertDeletionTx(ctx, tx, entry)
	})
	if err != nil {
		return fmt.Errorf("delete entity %s %d: %w", typeID, id, err)
	}
	if s.sink != nil {
		if err := s.sink.RecordDeletion(ctx, entry); err != nil {
			return fmt.Errorf("record deletion of %s %d: %w", typeID, id, err)
		}
	}
	return nil
}
