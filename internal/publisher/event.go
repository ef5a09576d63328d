// Package publisher defines the event envelope published for each
// distributed ad.
package publisher

import (
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/adfiller/internal/ad"
)

// EventType labels ad distribution events.
const EventType = "ad.distributed"

// Event is the JSON payload published for one ad.
type Event struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	PublishedAt time.Time `json:"published_at"`
	Ad          ad.Ad     `json:"ad"`
}

// NewEvent wraps a in a fresh envelope.
func NewEvent(a ad.Ad, now time.Time) Event {
	return Event{
		EventID:     uuid.NewString(),
		Type:        EventType,
		PublishedAt: now.UTC(),
		Ad:          a,
	}
}
