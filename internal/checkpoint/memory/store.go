// Package memory provides an in-process checkpoint store for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/adfiller/internal/checkpoint"
)

// Store keeps the checkpoint in memory.
type Store struct {
	mu    sync.Mutex
	id    int64
	set   bool
	saves int
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Load returns the saved identifier or checkpoint.ErrNotFound.
func (s *Store) Load(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return 0, checkpoint.ErrNotFound
	}
	return s.id, nil
}

// Save records id.
func (s *Store) Save(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.set = true
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
