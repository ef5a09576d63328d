// Package memory contains an in-memory ad publisher for tests and dry runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/adfiller/internal/ad"
	"github.com/JakeFAU/adfiller/internal/publisher"
)

// Publisher stores published events for inspection.
type Publisher struct {
	mu     sync.RWMutex
	events []publisher.Event
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish records an event for a and returns its id.
func (p *Publisher) Publish(_ context.Context, a ad.Ad) (string, error) {
	event := publisher.NewEvent(a, time.Now())
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return event.EventID, nil
}

// Events returns a copy of the recorded events.
func (p *Publisher) Events() []publisher.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]publisher.Event, len(p.events))
	copy(out, p.events)
	return out
}
