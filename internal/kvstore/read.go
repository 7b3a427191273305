package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/argosync/internal/content"
)

// Load returns the current revision of an entity in its default language.
// Returns content.ErrNotFound if the entity does not exist.
func (s *Store) Load(ctx context.Context, typeID string, id int64) (*content.Revision, error) {
	var rev *content.Revision
	err := s.view(ctx, func(txn *badger.Txn) error {
		var rec entityRecord
		if err := getJSON(txn, entityKey(typeID, id), &rec); err != nil {
			return err
		}
		var err error
		rev, err = loadRevisionTxn(txn, typeID, rec.Current)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load %s %d: %w", typeID, id, err)
	}
	return rev, nil
}

// LoadByUniqueKey returns the current revision of every entity with the given
// uuid, ordered by entity id. Returns an empty slice when nothing matches.
func (s *Store) LoadByUniqueKey(ctx context.Context, typeID, key string) ([]*content.Revision, error) {
	revs := []*content.Revision{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := uuidPrefix(typeID, key)
		var ids []int64
		if err := scanPrefix(txn, prefix, func(k, _ []byte) error {
			id, err := strconv.ParseInt(string(k[len(prefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("parse uuid index %s: %w", k, err)
			}
			ids = append(ids, id)
			return nil
		}); err != nil {
			return err
		}

		for _, id := range ids {
			var rec entityRecord
			if err := getJSON(txn, entityKey(typeID, id), &rec); err != nil {
				return err
			}
			rev, err := loadRevisionTxn(txn, typeID, rec.Current)
			if err != nil {
				return err
			}
			revs = append(revs, rev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s by uuid: %w", typeID, err)
	}
	return revs, nil
}

// LoadRevision returns one revision in its default language.
// Returns content.ErrNotFound if no such revision exists for the type.
func (s *Store) LoadRevision(ctx context.Context, typeID string, revisionID int64) (*content.Revision, error) {
	var rev *content.Revision
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		rev, err = loadRevisionTxn(txn, typeID, revisionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load revision %s %d: %w", typeID, revisionID, err)
	}
	return rev, nil
}

// LoadTranslation returns one language row of a revision.
func (s *Store) LoadTranslation(ctx context.Context, typeID string, revisionID int64, langcode string) (*content.Revision, error) {
	var rev content.Revision
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, revisionKey(typeID, revisionID, langcode), &rev)
	})
	if err != nil {
		return nil, fmt.Errorf("load translation %s %d %s: %w", typeID, revisionID, langcode, err)
	}
	return &rev, nil
}

func loadRevisionTxn(txn *badger.Txn, typeID string, revisionID int64) (*content.Revision, error) {
	rows, err := languageRows(txn, typeID, revisionID)
	if err != nil {
		return nil, err
	}
	rev := defaultRow(rows)
	if rev == nil {
		return nil, content.ErrNotFound
	}
	return rev, nil
}

// LatestRevisionID returns the highest revision id of an entity.
// Returns content.ErrNotFound if the entity has no revisions.
func (s *Store) LatestRevisionID(ctx context.Context, typeID string, id int64) (int64, error) {
	var rec entityRecord
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, entityKey(typeID, id), &rec)
	})
	if err == nil && rec.Latest == 0 {
		err = content.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("latest revision %s %d: %w", typeID, id, err)
	}
	return rec.Latest, nil
}

// LoadRevisions bulk-loads revisions in their default language.
// Results follow the order of revisionIDs; unknown ids are skipped.
func (s *Store) LoadRevisions(ctx context.Context, typeID string, revisionIDs []int64) ([]*content.Revision, error) {
	revs := make([]*content.Revision, 0, len(revisionIDs))
	err := s.view(ctx, func(txn *badger.Txn) error {
		for _, id := range revisionIDs {
			rev, err := loadRevisionTxn(txn, typeID, id)
			if errors.Is(err, content.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			revs = append(revs, rev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load revisions %s: %w", typeID, err)
	}
	return revs, nil
}

// RankedRevisionIDs scans every revision row of the type and keeps the
// top-ranked qualifying revision per entity.
func (s *Store) RankedRevisionIDs(ctx context.Context, q content.UpdatedQuery) ([]int64, error) {
	var candidates []*content.Revision
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, typeRevisionPrefix(q.TypeID), func(_, val []byte) error {
			var rev content.Revision
			if err := decodeJSON(val, &rev); err != nil {
				return fmt.Errorf("decode revision: %w", err)
			}
			if q.Matches(&rev) {
				candidates = append(candidates, &rev)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("rank revisions %s: %w", q.TypeID, err)
	}
	return content.SelectLatest(candidates), nil
}
