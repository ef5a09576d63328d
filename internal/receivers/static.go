// Package receivers provides the subscriber list read on every dispatch.
package receivers

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/JakeFAU/adfiller/internal/ad"
)

// Static serves a configured receiver list. Replace swaps it atomically
// between dispatch cycles.
type Static struct {
	mu   sync.RWMutex
	list []ad.Receiver
}

// NewStatic validates list against known categories and returns a Static.
func NewStatic(list []ad.Receiver, known func(category string) bool) (*Static, error) {
	s := &Static{}
	if err := s.Replace(list, known); err != nil {
		return nil, err
	}
	return s, nil
}

// Receivers returns a copy of the current list.
func (s *Static) Receivers(_ context.Context) ([]ad.Receiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.list), nil
}

// Replace installs a new list. Every receiver needs an id and a category that
// known accepts; a nil known accepts any category.
func (s *Static) Replace(list []ad.Receiver, known func(category string) bool) error {
	for i, r := range list {
		if r.ID == "" {
			return fmt.Errorf("receiver %d: id is required", i)
		}
		if known != nil && !known(r.Category) {
			return fmt.Errorf("receiver %s: unknown category %q", r.ID, r.Category)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = slices.Clone(list)
	return nil
}
