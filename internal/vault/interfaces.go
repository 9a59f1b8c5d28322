package vault

import (
	"context"
	"io"
	"time"
)

// Document is a small, fully buffered response such as the landing page or
// the manifest.
type Document struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// DocumentFetcher retrieves small documents in one piece.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (Document, error)
}

// Stream is an open response body for a vault item.
type Stream struct {
	URL        string
	StatusCode int
	Body       io.ReadCloser
}

// StreamFetcher opens item downloads without buffering them.
type StreamFetcher interface {
	Open(ctx context.Context, url string) (Stream, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Queue hands tasks from the producer to the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
	Close()
}
