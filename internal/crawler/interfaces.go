package crawler

import (
	"context"
	"time"
)

// Fetcher retrieves the raw content of one listing page.
type Fetcher interface {
	Fetch(ctx context.Context, page int) (FetchOutcome, error)
}

// PageExtractor turns raw page content into job records.
type PageExtractor interface {
	ExtractPage(content []byte) (PageResult, error)
}

// Sink persists the records of one page as a single batch.
type Sink interface {
	Persist(ctx context.Context, records []JobRecord) error
	Close() error
}

// DateNormalizer converts a relative "posted" phrase to an absolute time.
type DateNormalizer interface {
	Normalize(text string) *time.Time
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
