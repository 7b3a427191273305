package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/roach88/argosync/internal/content"
)

// SaveRevision commits rev as a new revision and returns the stored copy.
//
// Semantics match the SQL store: a zero rev.ID creates the entity, other
// language rows of the parent revision are carried forward, and the current
// pointer only moves to published revisions or off unpublished ones.
func (s *Store) SaveRevision(ctx context.Context, rev *content.Revision) (*content.Revision, error) {
	saved := rev.Clone()

	err := s.update(ctx, func(txn *badger.Txn) error {
		var rec entityRecord
		isNew := saved.ID == 0

		if isNew {
			id, err := nextSequence(txn, sequenceKey(saved.TypeID, "entity"))
			if err != nil {
				return err
			}
			saved.ID = id
			if saved.UUID == "" {
				saved.UUID = uuid.NewString()
			}
			rec = entityRecord{UUID: saved.UUID, Bundle: saved.Bundle}
			if err := txn.Set(uuidKey(saved.TypeID, saved.UUID, saved.ID), nil); err != nil {
				return fmt.Errorf("index uuid: %w", err)
			}
		} else {
			if err := getJSON(txn, entityKey(saved.TypeID, saved.ID), &rec); err != nil {
				if errors.Is(err, content.ErrNotFound) {
					return fmt.Errorf("entity %d: %w", saved.ID, content.ErrNotFound)
				}
				return err
			}
			saved.UUID = rec.UUID
			saved.Bundle = rec.Bundle
		}

		next, err := nextSequence(txn, sequenceKey(saved.TypeID, "revision"))
		if err != nil {
			return err
		}

		parent := saved.ParentRevisionID
		if parent == 0 || isNew {
			parent = rec.Latest
		}
		saved.DefaultLangcode = parent == 0
		if parent != 0 {
			if err := carryForward(txn, saved, parent, next); err != nil {
				return err
			}
		}

		saved.RevisionID = next
		saved.ParentRevisionID = 0
		if err := setJSON(txn, revisionKey(saved.TypeID, next, saved.Langcode), saved); err != nil {
			return err
		}
		if err := txn.Set(entityRevisionKey(saved.TypeID, saved.ID, next), nil); err != nil {
			return fmt.Errorf("index revision: %w", err)
		}

		advance := isNew || saved.Published
		if !advance {
			current, err := loadRevisionTxn(txn, saved.TypeID, rec.Current)
			if err != nil && !errors.Is(err, content.ErrNotFound) {
				return err
			}
			advance = current == nil || !current.Published
		}
		if advance {
			rec.Current = next
		}
		rec.Latest = next

		return setJSON(txn, entityKey(saved.TypeID, saved.ID), rec)
	})
	if err != nil {
		return nil, fmt.Errorf("save revision %s: %w", rev.TypeID, err)
	}

	return saved, nil
}

// carryForward copies the parent's other language rows into the new revision
// and sets saved's default-language flag from the parent's row of its language.
func carryForward(txn *badger.Txn, saved *content.Revision, parent, next int64) error {
	rows, err := languageRows(txn, saved.TypeID, parent)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if row.ID != saved.ID {
			continue
		}
		if row.Langcode == saved.Langcode {
			saved.DefaultLangcode = row.DefaultLangcode
			continue
		}
		row.RevisionID = next
		if err := setJSON(txn, revisionKey(saved.TypeID, next, row.Langcode), row); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEntity removes an entity with all its revisions and appends its uuid
// to the deletion ledger in the same transaction. With a deletion sink set,
// the entry goes to the sink once the transaction commits.
// Returns content.ErrNotFound if the entity does not exist.
func (s *Store) DeleteEntity(ctx context.Context, typeID string, id int64) error {
	var entry content.Deletion
	err := s.update(ctx, func(txn *badger.Txn) error {
		var rec entityRecord
		if err := getJSON(txn, entityKey(typeID, id), &rec); err != nil {
			return err
		}

		var keys [][]byte
		prefix := entityRevisionPrefix(typeID, id)
		if err := scanPrefix(txn, prefix, func(k, _ []byte) error {
			keys = append(keys, k)
			return nil
		}); err != nil {
			return err
		}

		for _, k := range keys {
			revisionID, err := strconv.ParseInt(string(k[len(prefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("parse revision index %s: %w", k, err)
			}
			rows, err := languageRows(txn, typeID, revisionID)
			if err != nil {
				return err
			}
			for _, row := range rows {
				if err := txn.Delete(revisionKey(typeID, revisionID, row.Langcode)); err != nil {
					return fmt.Errorf("delete revision: %w", err)
				}
			}
			if err := txn.Delete(k); err != nil {
				return fmt.Errorf("delete revision index: %w", err)
			}
		}

		if err := txn.Delete(uuidKey(typeID, rec.UUID, id)); err != nil {
			return fmt.Errorf("delete uuid index: %w", err)
		}
		if err := txn.Delete(entityKey(typeID, id)); err != nil {
			return fmt.Errorf("delete entity: %w", err)
		}

		deletedAt := s.now().Unix()
		entry = content.Deletion{UUID: rec.UUID, TypeID: typeID, DeletedAt: &deletedAt}
		if s.sink != nil {
			return nil
		}
		return setJSON(txn, deletionKey(rec.UUID), entry)
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
