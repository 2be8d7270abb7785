package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/okian/matchwise/pkg/logger"
	"github.com/okian/matchwise/pkg/metrics"
)

// BadgerStore persists documents as JSON values under
// "<collection>\x00<id>" keys.
type BadgerStore struct {
	db               *badger.DB
	inMemory         bool
	conflictAttempts uint
	conflictDelay    time.Duration
	logger           logger.Logger
}

// OpenBadgerStore opens (or creates) a store at path. Path is ignored
// when the store is in memory.
func OpenBadgerStore(path string, opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{
		conflictAttempts: 5,
		conflictDelay:    5 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("badger")
	}

	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if s.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db
	return s, nil
}

func docKeyBytes(collection, id string) []byte {
	return []byte(collection + string(keySeparator) + id)
}

func collectionPrefix(collection string) []byte {
	return []byte(collection + string(keySeparator))
}

func readDoc(item *badger.Item) (Document, error) {
	var doc Document
	err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", item.Key(), err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func getDoc(txn *badger.Txn, collection, id string) (Document, error) {
	item, err := txn.Get(docKeyBytes(collection, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return readDoc(item)
}

func setDoc(txn *badger.Txn, collection, id string, doc Document, mergeFields bool) error {
	if mergeFields {
		existing, err := getDoc(txn, collection, id)
		switch {
		case err == nil:
			doc = merge(existing, doc)
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	return txn.Set(docKeyBytes(collection, id), data)
}

func (s *BadgerStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validKey(collection, id); err != nil {
		return nil, err
	}
	var doc Document
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = getDoc(txn, collection, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ScanAll visits documents in key order inside one read transaction.
func (s *BadgerStore) ScanAll(ctx context.Context, collection string, fn func(id string, doc Document) error) error {
	prefix := collectionPrefix(collection)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			doc, err := readDoc(item)
			if err != nil {
				// One corrupt value does not hide the rest of the collection.
				s.logger.Warn(ctx, "skipping undecodable document", logger.String("collection", collection), logger.Error(err))
				metrics.RecordErrorByComponent("repository", "decode")
				continue
			}
			id := string(item.Key()[len(prefix):])
			if err := fn(id, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) Set(ctx context.Context, collection, id string, doc Document, mergeFields bool) error {
	if err := validKey(collection, id); err != nil {
		return err
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		return setDoc(txn, collection, id, doc, mergeFields)
	})
}

func (s *BadgerStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		return fn(badgerTx{txn: txn})
	})
}

// update runs fn in a read-write transaction, retrying on commit conflicts.
// Errors returned by fn itself are never retried.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var fnErr, lastErr error
	_ = retry.Do(
		func() error {
			fnErr = nil
			lastErr = s.db.Update(func(txn *badger.Txn) error {
				if err := fn(txn); err != nil {
					fnErr = err
					return err
				}
				return nil
			})
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(s.conflictAttempts),
		retry.Delay(s.conflictDelay),
		retry.MaxJitter(s.conflictDelay),
		retry.RetryIf(func(err error) bool {
			return fnErr == nil && errors.Is(err, badger.ErrConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug(ctx, "retrying conflicting transaction", logger.Int("attempt", int(n)+1), logger.Error(err))
		}),
	)
	if fnErr != nil {
		return fnErr
	}
	if lastErr != nil {
		return fmt.Errorf("badger update: %w", lastErr)
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

type badgerTx struct {
	txn *badger.Txn
}

func (tx badgerTx) Get(collection, id string) (Document, error) {
	if err := validKey(collection, id); err != nil {
		return nil, err
	}
	return getDoc(tx.txn, collection, id)
}

func (tx badgerTx) Set(collection, id string, doc Document, mergeFields bool) error {
	if err := validKey(collection, id); err != nil {
		return err
	}
	return setDoc(tx.txn, collection, id, doc, mergeFields)
}
