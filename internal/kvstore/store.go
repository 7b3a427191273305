// Package kvstore is an embedded entity store on BadgerDB.
//
// It satisfies the same contracts as the SQL store. BadgerDB has no analytic
// queries, so the sync ranking scans the type's revision rows and reduces them
// in memory with content.SelectLatest.
//
// Key layout (ids zero-padded so byte order equals numeric order):
//
//	seq/<type>/entity              last allocated entity id
//	seq/<type>/revision            last allocated revision id
//	ent/<type>/<id>                entity record (uuid, bundle, current, latest)
//	uuid/<type>/<uuid>/<id>        uuid index
//	rev/<type>/<revision>/<lang>   one language row of a revision
//	erev/<type>/<id>/<revision>    revisions of an entity
//	del/<uuid>                     deletion ledger entry
//
// Every write runs in one badger transaction; concurrent writers that touch the
// same keys fail with badger.ErrConflict instead of reusing an id.
package kvstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/roach88/argosync/internal/content"
)

// Options configures the badger store.
type Options struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// Store is the badger entity store.
type Store struct {
	db   *badger.DB
	now  func() time.Time
	sink content.DeletionRecorder
}

type entityRecord struct {
	UUID    string `json:"uuid"`
	Bundle  string `json:"bundle"`
	Current int64  `json:"current"`
	Latest  int64  `json:"latest"`
}

// Open opens or creates a badger store.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)

	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// SetDeletionSink sends DeleteEntity's ledger entries to r after commit
// instead of the badger ledger. A nil r restores the badger ledger.
func (s *Store) SetDeletionSink(r content.DeletionRecorder) {
	s.sink = r
}

// Close closes the BadgerDB database.
func (s *Store) Close() error {
	return s.db.Close()
}

func entityKey(typeID string, id int64) []byte {
	return fmt.Appendf(nil, "ent/%s/%020d", typeID, id)
}

func uuidPrefix(typeID, key string) []byte {
	return fmt.Appendf(nil, "uuid/%s/%s/", typeID, key)
}

func uuidKey(typeID, key string, id int64) []byte {
	return fmt.Appendf(uuidPrefix(typeID, key), "%020d", id)
}

func typeRevisionPrefix(typeID string) []byte {
	return fmt.Appendf(nil, "rev/%s/", typeID)
}

func revisionPrefix(typeID string, revisionID int64) []byte {
	return fmt.Appendf(typeRevisionPrefix(typeID), "%020d/", revisionID)
}

func revisionKey(typeID string, revisionID int64, langcode string) []byte {
	return append(revisionPrefix(typeID, revisionID), langcode...)
}

func entityRevisionPrefix(typeID string, id int64) []byte {
	return fmt.Appendf(nil, "erev/%s/%020d/", typeID, id)
}

func entityRevisionKey(typeID string, id, revisionID int64) []byte {
	return fmt.Appendf(entityRevisionPrefix(typeID, id), "%020d", revisionID)
}

func sequenceKey(typeID, name string) []byte {
	return fmt.Appendf(nil, "seq/%s/%s", typeID, name)
}

// getJSON decodes the value at key into v.
// Returns content.ErrNotFound if the key is absent.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return content.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return decodeJSON(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// decodeJSON keeps integer fields exact by decoding numbers as json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if rev, ok := v.(*content.Revision); ok {
		if rev.Fields == nil {
			rev.Fields = map[string]any{}
		}
		rev.Fields = content.NormalizeNumbers(rev.Fields).(map[string]any)
	}
	return nil
}

// nextSequence increments and returns a counter inside txn.
func nextSequence(txn *badger.Txn, key []byte) (int64, error) {
	var current uint64
	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, fmt.Errorf("read sequence %s: %w", key, err)
	default:
		if err := item.Value(func(val []byte) error {
			current = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}

	next := current + 1
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := txn.Set(key, buf); err != nil {
		return 0, fmt.Errorf("write sequence %s: %w", key, err)
	}
	return int64(next), nil
}

// scanPrefix calls fn with the key and value of every item under prefix, in
// key order.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

// languageRows returns every language row of one revision, ordered by langcode.
func languageRows(txn *badger.Txn, typeID string, revisionID int64) ([]*content.Revision, error) {
	rows := []*content.Revision{}
	err := scanPrefix(txn, revisionPrefix(typeID, revisionID), func(_, val []byte) error {
		var rev content.Revision
		if err := decodeJSON(val, &rev); err != nil {
			return fmt.Errorf("decode revision: %w", err)
		}
		rows = append(rows, &rev)
		return nil
	})
	return rows, err
}

// defaultRow picks the default-language row, falling back to the first.
func defaultRow(rows []*content.Revision) *content.Revision {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r.DefaultLangcode {
			return r
		}
	}
	return rows[0]
}

// view and update wrap badger transactions with context cancellation checks.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(fn)
}
