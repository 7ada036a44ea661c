// Package postgres provides a Postgres-backed job sink.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage"
)

// Config controls the Postgres connection pool used for job rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// JobSink writes each page's records in one transaction.
type JobSink struct {
	pool      txBeginner
	table     string
	insertSQL string
	clock     crawler.Clock
	logger    *zap.Logger
}

// NewJobSink connects a pool and verifies it with a ping so bad
// credentials fail before any page is fetched.
func NewJobSink(ctx context.Context, cfg Config, clock crawler.Clock, logger *zap.Logger) (*JobSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	sink, err := NewJobSinkWithPool(pool, cfg.Table, clock, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

// NewJobSinkWithPool constructs a sink from an existing pool (primarily for testing).
func NewJobSinkWithPool(pool txBeginner, table string, clock crawler.Clock, logger *zap.Logger) (*JobSink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := storage.TableName(table)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobSink{
		pool:      pool,
		table:     table,
		insertSQL: storage.InsertSQL(table, func(i int) string { return fmt.Sprintf("$%d", i) }),
		clock:     clock,
		logger:    logger,
	}, nil
}

// Close releases the underlying pool resources.
func (s *JobSink) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// Persist inserts every record inside a single transaction. Any failure
// rolls the whole batch back.
func (s *JobSink) Persist(ctx context.Context, records []crawler.JobRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := storage.NewRows(records, s.clock.Now())

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", crawler.ErrPersist, err)
	}
	for i, row := range rows {
		if _, err := tx.Exec(ctx, s.insertSQL, row.Args()...); err != nil {
			s.rollback(ctx, tx)
			return fmt.Errorf("%w: insert row %d: %w", crawler.ErrPersist, i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", crawler.ErrPersist, err)
	}
	return nil
}

func (s *JobSink) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil {
		s.logger.Warn("rollback failed", zap.String("table", s.table), zap.Error(err))
	}
}
