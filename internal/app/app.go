// Package app builds the long-lived scraper services from configuration,
// acting as the dependency injection container for the command.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/clock/system"
	"github.com/JakeFAU/jobstreet-scraper/internal/config"
	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/dispatcher"
	"github.com/JakeFAU/jobstreet-scraper/internal/extract"
	collyfetcher "github.com/JakeFAU/jobstreet-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/jobstreet-scraper/internal/id/uuid"
	"github.com/JakeFAU/jobstreet-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/jobstreet-scraper/internal/relativedate"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage/memory"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage/mysql"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage/postgres"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage/sqlite"
	"github.com/JakeFAU/jobstreet-scraper/internal/worker"
)

// App holds the services for one scrape run.
type App struct {
	logger     *zap.Logger
	sink       crawler.Sink
	fetcher    crawler.Fetcher
	dispatcher *dispatcher.Dispatcher
}

// New wires every component from cfg. It fails fast when the sink cannot
// connect, before any page is fetched.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := system.New()

	sink, err := newSink(ctx, cfg.Store, clock, logger.Named("store"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.Store.Driver, err)
	}

	limiter := ratelimit.New(ratelimit.Config{DefaultRPS: cfg.Crawler.RequestsPerSecond, DefaultBurst: 1})
	fetcher, err := collyfetcher.New(collyfetcher.Config{
		BaseURL:          cfg.Crawler.BaseURL,
		MaxPages:         cfg.Crawler.MaxPages,
		UserAgent:        cfg.Crawler.UserAgent,
		Timeout:          cfg.HTTP.Timeout,
		DelayMin:         cfg.Crawler.DelayMin,
		DelayMax:         cfg.Crawler.DelayMax,
		RetryDelay:       cfg.Crawler.RetryDelay,
		MaxAttempts:      cfg.Crawler.MaxAttempts,
		TransportRetries: cfg.HTTP.MaxRetries,
		BackoffFactor:    cfg.HTTP.BackoffFactor,
		RespectRobots:    cfg.Crawler.RespectRobots,
	}, limiter, logger.Named("fetcher"))
	if err != nil {
		_ = sink.Close()
		return nil, fmt.Errorf("failed to initialize fetcher: %w", err)
	}

	dates := relativedate.New(clock, logger.Named("dates"))
	extractor := extract.New(cfg.Extract, dates, logger.Named("extract"))

	workerLogger := logger.Named("worker")
	w := worker.New(fetcher, extractor, sink, clock, workerLogger,
		worker.WithStateObserver(func(page int, state crawler.PageState) {
			workerLogger.Debug("page state", zap.Int("page", page), zap.String("state", string(state)))
		}),
	)
	d := dispatcher.New(w, uuid.New(), clock, dispatcher.Config{
		MaxPages:    cfg.Crawler.MaxPages,
		Concurrency: cfg.Crawler.Concurrency,
	}, logger.Named("dispatcher"))

	return &App{
		logger:     logger,
		sink:       sink,
		fetcher:    fetcher,
		dispatcher: d,
	}, nil
}

func newSink(ctx context.Context, cfg config.StoreConfig, clock crawler.Clock, logger *zap.Logger) (crawler.Sink, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to postgres", zap.String("table", cfg.Table))
		return postgres.NewJobSink(ctx, postgres.Config{
			DSN:             cfg.DSN,
			Table:           cfg.Table,
			MaxConns:        int32(cfg.MaxConns), //nolint:gosec // bounded by config validation
			MaxConnLifetime: cfg.MaxConnLifetime,
		}, clock, logger)
	case config.DriverMySQL:
		logger.Info("connecting to mysql", zap.String("table", cfg.Table))
		return mysql.NewJobSink(ctx, mysql.Config{
			DSN:             cfg.DSN,
			Table:           cfg.Table,
			MaxOpenConns:    cfg.MaxConns,
			MaxIdleConns:    cfg.MaxConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
		}, clock, logger)
	case config.DriverSQLite:
		logger.Info("opening sqlite database", zap.String("path", cfg.DSN), zap.String("table", cfg.Table))
		return sqlite.NewJobSink(ctx, cfg.DSN, cfg.Table, clock, logger)
	case config.DriverMemory:
		logger.Info("using in-memory store; records will be discarded")
		return memory.NewJobSink(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}

// Run scrapes every page and returns the final summary.
func (a *App) Run(ctx context.Context) dispatcher.Summary {
	return a.dispatcher.Run(ctx)
}

// Snapshot exposes the live run summary.
func (a *App) Snapshot() dispatcher.Summary {
	return a.dispatcher.Snapshot()
}

// Sink returns the configured job sink.
func (a *App) Sink() crawler.Sink {
	return a.sink
}

// Close releases the sink's connections.
func (a *App) Close() {
	if err := a.sink.Close(); err != nil {
		a.logger.Warn("error closing store", zap.Error(err))
	}
}
