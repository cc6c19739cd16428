package catalog

import (
	"context"
	"io/fs"
	"slices"
	"sync"
)

const memPath = "memory"

// MemStore is a Store that keeps the last saved snapshot in memory.
type MemStore struct {
	mu       sync.Mutex
	products []Product
	saves    int
	writeErr error
}

// NewMemStore returns a store holding the given products. With no products it
// behaves like a missing file until the first save.
func NewMemStore(products ...Product) *MemStore {
	s := &MemStore{}
	if len(products) > 0 {
		s.products = slices.Clone(products)
	}
	return s
}

func (s *MemStore) Load(_ context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.products == nil {
		return nil, &StorageError{Op: opRead, Path: memPath, Err: fs.ErrNotExist}
	}
	return slices.Clone(s.products), nil
}

func (s *MemStore) Save(_ context.Context, products []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writeErr != nil {
		return &StorageError{Op: opWrite, Path: memPath, Err: s.writeErr}
	}
	s.products = append(make([]Product, 0, len(products)), products...)
	s.saves++
	return nil
}

// FailWrites makes every following Save fail with err. A nil err heals the store.
func (s *MemStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Snapshot returns a copy of the last saved catalog.
func (s *MemStore) Snapshot() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.products)
}

// Saves reports how many saves succeeded.
func (s *MemStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
