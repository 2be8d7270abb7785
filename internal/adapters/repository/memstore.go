package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps documents in process memory. Scans visit ids in
// lexical order.
type MemoryStore struct {
	mu     sync.RWMutex
	colls  map[string]map[string]Document
	closed bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{colls: make(map[string]map[string]Document)}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validKey(collection, id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.colls[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) ScanAll(ctx context.Context, collection string, fn func(id string, doc Document) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	coll := s.colls[collection]
	ids := make([]string, 0, len(coll))
	docs := make(map[string]Document, len(coll))
	for id, doc := range coll {
		ids = append(ids, id)
		docs[id] = doc.Clone()
	}
	s.mu.RUnlock()

	// fn runs without the lock so it may write back.
	slices.Sort(ids)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id, docs[id]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc Document, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(collection, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.put(collection, id, doc, merge)
	return nil
}

func (s *MemoryStore) put(collection, id string, doc Document, mergeFields bool) {
	coll, ok := s.colls[collection]
	if !ok {
		coll = make(map[string]Document)
		s.colls[collection] = coll
	}
	if existing, ok := coll[id]; ok && mergeFields {
		coll[id] = merge(existing, doc)
		return
	}
	coll[id] = doc.Clone()
}

// RunTransaction holds the write lock for the duration of fn and applies
// its staged writes when fn returns nil.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	tx := &memTx{s: s, staged: make(map[docKey]Document)}
	if err := fn(tx); err != nil {
		return err
	}
	for _, k := range tx.order {
		s.put(k.collection, k.id, tx.staged[k], false)
	}
	return nil
}

// Close drops every document.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.colls = nil
	return nil
}

type docKey struct{ collection, id string }

type memTx struct {
	s      *MemoryStore
	staged map[docKey]Document
	order  []docKey
}

func (tx *memTx) Get(collection, id string) (Document, error) {
	if err := validKey(collection, id); err != nil {
		return nil, err
	}
	if doc, ok := tx.staged[docKey{collection, id}]; ok {
		return doc.Clone(), nil
	}
	doc, ok := tx.s.colls[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (tx *memTx) Set(collection, id string, doc Document, mergeFields bool) error {
	if err := validKey(collection, id); err != nil {
		return err
	}
	k := docKey{collection, id}
	next := doc.Clone()
	if mergeFields {
		if existing, err := tx.Get(collection, id); err == nil {
			next = merge(existing, doc)
		}
	}
	if _, ok := tx.staged[k]; !ok {
		tx.order = append(tx.order, k)
	}
	tx.staged[k] = next
	return nil
}
