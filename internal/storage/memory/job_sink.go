// Package memory keeps persisted batches in-process for dry runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
)

// JobSink records every batch it receives.
type JobSink struct {
	mu      sync.RWMutex
	batches [][]crawler.JobRecord
	err     error
}

// NewJobSink constructs a JobSink.
func NewJobSink() *JobSink {
	return &JobSink{}
}

// FailWith makes every subsequent Persist return err (nil restores success).
func (s *JobSink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Persist stores a copy of the batch.
func (s *JobSink) Persist(_ context.Context, records []crawler.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if len(records) == 0 {
		return nil
	}
	s.batches = append(s.batches, append([]crawler.JobRecord(nil), records...))
	return nil
}

// Batches returns a snapshot of stored batches in arrival order.
func (s *JobSink) Batches() [][]crawler.JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]crawler.JobRecord, len(s.batches))
	copy(out, s.batches)
	return out
}

// Records flattens every stored batch.
func (s *JobSink) Records() []crawler.JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawler.JobRecord
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

// Close is a no-op.
func (s *JobSink) Close() error {
	return nil
}
