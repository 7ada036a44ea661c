// Package collyfetcher implements crawler.Fetcher for paginated listing pages using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/metrics"
)

// Config controls collector and retry behavior.
type Config struct {
	BaseURL   string
	MaxPages  int
	UserAgent string
	Timeout   time.Duration
	// DelayMin and DelayMax bound the randomized pause before every request.
	DelayMin time.Duration
	DelayMax time.Duration
	// RetryDelay separates page-level attempts; MaxAttempts caps them.
	RetryDelay  time.Duration
	MaxAttempts int
	// TransportRetries and BackoffFactor drive connection-level retries.
	TransportRetries int
	BackoffFactor    time.Duration
	RespectRobots    bool
}

// Limiter throttles requests per host.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher implements crawler.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	base          *url.URL
	baseCollector *colly.Collector
	limiter       Limiter
	pause         pauseController
	jitter        func(minDelay, maxDelay time.Duration) time.Duration
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// response is filled by collector callbacks for a single visit.
type response struct {
	status int
	body   []byte
	err    error
}

// New builds a Fetcher. limiter may be nil.
func New(cfg Config, limiter Limiter, logger *zap.Logger) (*Fetcher, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pause := timerPauseController{}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	// 404 is the end-of-pagination signal, so every status must reach OnResponse.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newRetryTransport(newHTTPTransport(), cfg.TransportRetries, cfg.BackoffFactor, pause))
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		base:          base,
		baseCollector: c,
		limiter:       limiter,
		pause:         pause,
		jitter:        randomDelay,
		logger:        logger,
	}, nil
}

// Fetch retrieves one listing page. Pages past the ceiling, and pages the
// site answers with 404, come back as crawler.OutcomeNotFound.
func (f *Fetcher) Fetch(ctx context.Context, page int) (crawler.FetchOutcome, error) {
	if page > f.cfg.MaxPages {
		f.logger.Debug("page beyond ceiling", zap.Int("page", page), zap.Int("max_pages", f.cfg.MaxPages))
		return crawler.FetchOutcome{Kind: crawler.OutcomeNotFound, Page: page}, nil
	}
	pageURL := f.PageURL(page)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			f.pause.Pause(ctx, f.cfg.RetryDelay)
		}
		if err := ctx.Err(); err != nil {
			return crawler.FetchOutcome{}, fmt.Errorf("fetch page %d canceled: %w", page, err)
		}

		resp, err := f.fetchOnce(ctx, pageURL)
		outcome := crawler.FetchOutcome{
			Page:       page,
			URL:        pageURL,
			StatusCode: resp.status,
			Attempts:   attempt,
			Duration:   time.Since(start),
		}
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return crawler.FetchOutcome{}, err
			}
			if errors.Is(err, colly.ErrRobotsTxtBlocked) {
				metrics.ObserveFetchAttempt("error")
				f.logger.Error("fetch blocked by robots.txt", zap.String("url", pageURL))
				return crawler.FetchOutcome{}, fmt.Errorf("fetch page %d: %w", page, err)
			}
			lastErr = err
			metrics.ObserveFetchAttempt("transient")
			f.logger.Error("fetch failed",
				zap.String("url", pageURL), zap.Int("attempt", attempt), zap.Error(err))
			continue
		case resp.status == http.StatusNotFound:
			metrics.ObserveFetchAttempt("not_found")
			f.logger.Info("page not found", zap.String("url", pageURL))
			outcome.Kind = crawler.OutcomeNotFound
			return outcome, nil
		case resp.status >= 200 && resp.status < 300:
			metrics.ObserveFetchAttempt("content")
			f.logger.Info("page fetched",
				zap.String("url", pageURL), zap.Int("bytes", len(resp.body)), zap.Int("attempt", attempt))
			outcome.Kind = crawler.OutcomeContent
			outcome.Body = resp.body
			return outcome, nil
		case isTransientStatus(resp.status):
			lastErr = fmt.Errorf("%w: %d", crawler.ErrTransientStatus, resp.status)
			metrics.ObserveFetchAttempt("transient")
			f.logger.Warn("fetch failed",
				zap.String("url", pageURL), zap.Int("status_code", resp.status), zap.Int("attempt", attempt))
			continue
		default:
			metrics.ObserveFetchAttempt("error")
			f.logger.Error("fetch failed", zap.String("url", pageURL), zap.Int("status_code", resp.status))
			return crawler.FetchOutcome{}, fmt.Errorf("%w: %d for %s", crawler.ErrUnexpectedStatus, resp.status, pageURL)
		}
	}
	return crawler.FetchOutcome{}, fmt.Errorf("%w: page %d after %d attempts: %w",
		crawler.ErrRetriesExhausted, page, f.cfg.MaxAttempts, lastErr)
}

// PageURL returns the listing URL for page, preserving the base query.
func (f *Fetcher) PageURL(page int) string {
	u := *f.base
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (response, error) {
	if delay := f.jitter(f.cfg.DelayMin, f.cfg.DelayMax); delay > 0 {
		metrics.ObserveDelay("politeness", delay)
		f.pause.Pause(ctx, delay)
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, pageURL); err != nil {
			return response{}, err
		}
	}
	return f.runCollector(ctx, pageURL)
}

func (f *Fetcher) runCollector(ctx context.Context, pageURL string) (response, error) {
	done := make(chan response, 1)
	go func() {
		var resp response
		collector := f.baseCollector.Clone()
		f.configureCollectorHooks(collector, &resp)
		if err := collector.Visit(pageURL); err != nil && resp.err == nil {
			resp.err = err
		}
		done <- resp
	}()

	select {
	case <-ctx.Done():
		return response{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case resp := <-done:
		if resp.err != nil {
			return resp, fmt.Errorf("colly visit failed: %w", resp.err)
		}
		return resp, nil
	}
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, resp *response) {
	hooks.OnResponse(func(r *colly.Response) {
		resp.status = r.StatusCode
		resp.body = append([]byte(nil), r.Body...)
	})
	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			resp.status = r.StatusCode
		}
		resp.err = err
	})
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func randomDelay(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= 0 {
		return 0
	}
	if maxDelay <= minDelay {
		return minDelay
	}
	return minDelay + time.Duration(rand.Int64N(int64(maxDelay-minDelay)+1))
}

var _ crawler.Fetcher = (*Fetcher)(nil)
