package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeFetcher struct {
	outcome crawler.FetchOutcome
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, page int) (crawler.FetchOutcome, error) {
	f.calls++
	out := f.outcome
	out.Page = page
	return out, f.err
}

type fakeExtractor struct {
	result crawler.PageResult
	err    error
	panics bool
}

func (e *fakeExtractor) ExtractPage([]byte) (crawler.PageResult, error) {
	if e.panics {
		panic("selector blew up")
	}
	return e.result, e.err
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]crawler.JobRecord
	err     error
}

func (s *fakeSink) Persist(_ context.Context, records []crawler.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func newWorker(f crawler.Fetcher, e crawler.PageExtractor, s crawler.Sink, states *[]crawler.PageState) *Worker {
	var opts []Option
	if states != nil {
		opts = append(opts, WithStateObserver(func(_ int, st crawler.PageState) {
			*states = append(*states, st)
		}))
	}
	return New(f, e, s, fakeClock{now: time.Unix(100, 0)}, zap.NewNop(), opts...)
}

func TestProcessSuccessFlow(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{outcome: crawler.FetchOutcome{Kind: crawler.OutcomeContent, Body: []byte("<html/>"), Attempts: 1}}
	extractor := &fakeExtractor{result: crawler.PageResult{{Title: "Chef"}, {Title: "Cook"}}}
	sink := &fakeSink{}
	var states []crawler.PageState

	report := newWorker(fetcher, extractor, sink, &states).Process(context.Background(), 3)

	require.NoError(t, report.Err)
	require.Equal(t, 3, report.Page)
	require.Equal(t, crawler.PageStateDone, report.State)
	require.Equal(t, 2, report.Records)
	require.Equal(t, 1, report.Attempts)
	require.Len(t, sink.batches, 1)
	require.Equal(t, []crawler.PageState{
		crawler.PageStateFetching,
		crawler.PageStateExtracting,
		crawler.PageStatePersisting,
		crawler.PageStateDone,
	}, states)
}

func TestProcessNotFoundSkipsPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{outcome: crawler.FetchOutcome{Kind: crawler.OutcomeNotFound}}
	sink := &fakeSink{}
	report := newWorker(fetcher, &fakeExtractor{}, sink, nil).Process(context.Background(), 9)

	require.Equal(t, crawler.PageStateSkipped, report.State)
	require.Empty(t, sink.batches)
}

func TestProcessFetchErrorFailsPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: crawler.ErrRetriesExhausted, outcome: crawler.FetchOutcome{Attempts: 3}}
	report := newWorker(fetcher, &fakeExtractor{}, &fakeSink{}, nil).Process(context.Background(), 1)

	require.Equal(t, crawler.PageStateFailed, report.State)
	require.ErrorIs(t, report.Err, crawler.ErrRetriesExhausted)
	require.Equal(t, 3, report.Attempts)
}

func TestProcessEmptyPageSkipsPersist(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{outcome: crawler.FetchOutcome{Kind: crawler.OutcomeContent}}
	sink := &fakeSink{err: errors.New("must not be called")}
	var states []crawler.PageState

	report := newWorker(fetcher, &fakeExtractor{}, sink, &states).Process(context.Background(), 1)

	require.NoError(t, report.Err)
	require.Equal(t, crawler.PageStateDone, report.State)
	require.Zero(t, report.Records)
	require.NotContains(t, states, crawler.PageStatePersisting)
}

func TestProcessExtractionErrorFailsPage(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{outcome: crawler.FetchOutcome{Kind: crawler.OutcomeContent}}
	extractor := &fakeExtractor{err: crawler.ErrParse}
	report := newWorker(fetcher, extractor, &fakeSink{}, nil).Process(context.Background(), 1)

	require.Equal(t, crawler.PageStateFailed, report.State)
	require.ErrorIs(t, report.Err, crawler.ErrParse)
}

func TestProcessPersistErrorIsWrapped(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{outcome: crawler.FetchOutcome{Kind: crawler.OutcomeContent}}
	extractor := &fakeExtractor{result: crawler.PageResult{{Title: "Chef"}}}
	boom := errors.New("connection reset")
	report := newWorker(fetcher, extractor, &fakeSink{err: boom}, nil).Process(context.Background(), 1)

	require.Equal(t, crawler.PageStateFailed, report.State)
	require.ErrorIs(t, report.Err, crawler.ErrPersist)
	require.ErrorIs(t, report.Err, boom)
	require.Zero(t, report.Records)
}

func TestProcessRecoversFromPanic(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{outcome: crawler.FetchOutcome{Kind: crawler.OutcomeContent}}
	report := newWorker(fetcher, &fakeExtractor{panics: true}, &fakeSink{}, nil).Process(context.Background(), 2)

	require.Equal(t, crawler.PageStateFailed, report.State)
	require.ErrorContains(t, report.Err, "panicked")
}
