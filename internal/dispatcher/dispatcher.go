// Package dispatcher issues listing pages to workers and tracks the run summary.
package dispatcher

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
)

// PageProcessor handles one page end to end.
type PageProcessor interface {
	Process(ctx context.Context, page int) crawler.PageReport
}

// Config bounds the run.
type Config struct {
	MaxPages    int
	Concurrency int
}

// Summary describes a run in progress or a finished run.
type Summary struct {
	RunID       string        `json:"run_id"`
	Running     bool          `json:"running"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Issued      int           `json:"issued"`
	Done        int           `json:"done"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	Records     int           `json:"records"`
	FailedPages []int         `json:"failed_pages,omitempty"`
}

// FailureRatio is failed/(done+failed); zero when no page completed.
func (s Summary) FailureRatio() float64 {
	total := s.Done + s.Failed
	if total == 0 {
		return 0
	}
	return float64(s.Failed) / float64(total)
}

// Dispatcher fans pages 1..MaxPages out to a bounded pool of workers.
type Dispatcher struct {
	processor PageProcessor
	ids       crawler.IDGenerator
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger

	mu      sync.Mutex
	summary Summary
}

// New creates a Dispatcher.
func New(processor PageProcessor, ids crawler.IDGenerator, clock crawler.Clock, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		processor: processor,
		ids:       ids,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run issues pages in ascending order until MaxPages, a not-found page, or
// context cancellation. Pages already in flight are allowed to finish.
func (d *Dispatcher) Run(ctx context.Context) Summary {
	runID, err := d.ids.NewID()
	if err != nil {
		d.logger.Warn("run id generation failed", zap.Error(err))
	}
	started := d.clock.Now()
	d.mu.Lock()
	d.summary = Summary{RunID: runID, Running: true, StartedAt: started}
	d.mu.Unlock()

	logger := d.logger.With(zap.String("run_id", runID))
	logger.Info("scrape started",
		zap.Int("max_pages", d.cfg.MaxPages),
		zap.Int("concurrency", d.cfg.Concurrency),
	)

	var stop atomic.Bool
	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)

	for page := 1; page <= d.cfg.MaxPages; page++ {
		if stop.Load() || ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// the slot may free up only after an earlier page reported not-found
			if stop.Load() || ctx.Err() != nil {
				return nil
			}
			d.mu.Lock()
			d.summary.Issued++
			d.mu.Unlock()

			report := d.processor.Process(ctx, page)
			if report.State == crawler.PageStateSkipped {
				stop.Store(true)
			}
			d.record(logger, report)
			return nil // a failed page never cancels its siblings
		})
	}
	_ = g.Wait()

	d.mu.Lock()
	d.summary.Running = false
	d.summary.Duration = d.clock.Now().Sub(started)
	sort.Ints(d.summary.FailedPages)
	out := d.snapshotLocked()
	d.mu.Unlock()

	logger.Info("scrape completed",
		zap.Int("done", out.Done),
		zap.Int("skipped", out.Skipped),
		zap.Int("failed", out.Failed),
		zap.Int("records", out.Records),
		zap.Ints("failed_pages", out.FailedPages),
		zap.Duration("duration", out.Duration),
		zap.Bool("canceled", ctx.Err() != nil),
	)
	return out
}

func (d *Dispatcher) record(logger *zap.Logger, report crawler.PageReport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch report.State {
	case crawler.PageStateDone:
		d.summary.Done++
		d.summary.Records += report.Records
	case crawler.PageStateSkipped:
		d.summary.Skipped++
	default:
		d.summary.Failed++
		d.summary.FailedPages = append(d.summary.FailedPages, report.Page)
		logger.Warn("page failed", zap.Int("page", report.Page), zap.Error(report.Err))
	}
}

// Snapshot returns the current summary; safe to call while Run is active.
func (d *Dispatcher) Snapshot() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.snapshotLocked()
	if out.Running {
		out.Duration = d.clock.Now().Sub(out.StartedAt)
	}
	return out
}

func (d *Dispatcher) snapshotLocked() Summary {
	out := d.summary
	out.FailedPages = append([]int(nil), d.summary.FailedPages...)
	return out
}
