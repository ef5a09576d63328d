package ad

import (
	"context"
	"io"
	"time"
)

// PageFetcher retrieves the raw markup of the ad page with the given id.
type PageFetcher interface {
	Fetch(ctx context.Context, id int64) ([]byte, error)
}

// Extractor reconstructs an Ad from page markup.
type Extractor interface {
	Extract(page []byte) (Ad, error)
}

// CheckpointStore persists the last successfully processed identifier.
type CheckpointStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, id int64) error
}

// Sender is the chat delivery transport.
type Sender interface {
	SendText(ctx context.Context, destination string, message string) error
	SendPhoto(ctx context.Context, destination string, imageURL string, caption string) error
}

// ReceiverSource lists the subscribers for one dispatch cycle.
type ReceiverSource interface {
	Receivers(ctx context.Context) ([]Receiver, error)
}

// Publisher pushes distributed ads to an event stream.
type Publisher interface {
	Publish(ctx context.Context, ad Ad) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
