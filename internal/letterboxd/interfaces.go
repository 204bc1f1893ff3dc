package letterboxd

import (
	"context"
	"time"
)

// Fetcher fetches a page and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// RenderDetector decides whether a fetched body warrants a rendered retry.
type RenderDetector interface {
	ShouldRender(resp FetchResponse) bool
}

// Publisher pushes snapshot events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces snapshot and history IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
