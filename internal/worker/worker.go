// Package worker runs the fetch, extract and persist pipeline for one page.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/metrics"
)

// Worker drives a single page through its lifecycle.
type Worker struct {
	fetcher   crawler.Fetcher
	extractor crawler.PageExtractor
	sink      crawler.Sink
	clock     crawler.Clock
	logger    *zap.Logger
	// onState observes every transition; used by tests and the status endpoint.
	onState func(page int, state crawler.PageState)
}

// Option customizes a Worker.
type Option func(*Worker)

// WithStateObserver registers fn to be called on every page state transition.
func WithStateObserver(fn func(page int, state crawler.PageState)) Option {
	return func(w *Worker) {
		w.onState = fn
	}
}

// New constructs a Worker.
func New(
	fetcher crawler.Fetcher,
	extractor crawler.PageExtractor,
	sink crawler.Sink,
	clock crawler.Clock,
	logger *zap.Logger,
	opts ...Option,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		clock:     clock,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process fetches, extracts and persists one page. It never panics and always
// returns a report in a terminal state.
func (w *Worker) Process(ctx context.Context, page int) (report crawler.PageReport) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := w.clock.Now()
	report = crawler.PageReport{Page: page, State: crawler.PageStatePending}
	defer func() {
		if r := recover(); r != nil {
			report.Err = fmt.Errorf("page %d panicked: %v", page, r)
			report.State = crawler.PageStateFailed
			w.logger.Error("page processing panicked", zap.Int("page", page), zap.Any("panic", r))
		}
		report.Duration = w.clock.Now().Sub(start)
		metrics.ObservePage(string(report.State))
		w.transition(&report, report.State)
	}()

	w.transition(&report, crawler.PageStateFetching)
	outcome, err := w.fetcher.Fetch(ctx, page)
	report.Attempts = outcome.Attempts
	if err != nil {
		report.Err = err
		report.State = crawler.PageStateFailed
		return report
	}
	if outcome.NotFound() {
		report.State = crawler.PageStateSkipped
		return report
	}

	w.transition(&report, crawler.PageStateExtracting)
	records, err := w.extractor.ExtractPage(outcome.Body)
	if err != nil {
		w.logger.Error("extraction failed", zap.Int("page", page), zap.Error(err))
		report.Err = err
		report.State = crawler.PageStateFailed
		return report
	}
	if len(records) == 0 {
		w.logger.Info("page has no listings", zap.Int("page", page))
		report.State = crawler.PageStateDone
		return report
	}

	w.transition(&report, crawler.PageStatePersisting)
	if err := w.persist(ctx, page, records); err != nil {
		report.Err = err
		report.State = crawler.PageStateFailed
		return report
	}
	report.Records = len(records)
	report.State = crawler.PageStateDone
	return report
}

func (w *Worker) persist(ctx context.Context, page int, records crawler.PageResult) error {
	started := time.Now()
	if err := w.sink.Persist(ctx, records); err != nil {
		metrics.ObservePersist("failure")
		w.logger.Error("persist failed",
			zap.Int("page", page),
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		if !errors.Is(err, crawler.ErrPersist) {
			err = fmt.Errorf("%w: %w", crawler.ErrPersist, err)
		}
		return err
	}
	metrics.ObservePersist("success")
	metrics.ObserveRecords(len(records))
	w.logger.Info("batch persisted",
		zap.Int("page", page),
		zap.Int("records", len(records)),
		zap.Duration("duration", time.Since(started)),
	)
	return nil
}

func (w *Worker) transition(report *crawler.PageReport, state crawler.PageState) {
	report.State = state
	if w.onState != nil {
		w.onState(report.Page, state)
	}
}
