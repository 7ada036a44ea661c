// Package mysql provides a MySQL-backed job sink built on gorm.
package mysql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage"
)

const insertBatchSize = 100

// Config controls the MySQL connection.
type Config struct {
	DSN             string
	Table           string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// JobSink writes each page's records in one gorm transaction.
type JobSink struct {
	db     *gorm.DB
	table  string
	clock  crawler.Clock
	logger *zap.Logger
}

// NewJobSink opens the database and pings it so bad credentials fail early.
func NewJobSink(ctx context.Context, cfg Config, clock crawler.Clock, logger *zap.Logger) (*JobSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	db, err := gorm.Open(gormmysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return NewJobSinkWithDB(db, cfg.Table, clock, logger)
}

// NewJobSinkWithDB wraps an existing gorm handle (primarily for testing).
func NewJobSinkWithDB(db *gorm.DB, table string, clock crawler.Clock, logger *zap.Logger) (*JobSink, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	table, err := storage.TableName(table)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobSink{db: db, table: table, clock: clock, logger: logger}, nil
}

// Close releases the connection pool.
func (s *JobSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("mysql handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close mysql: %w", err)
	}
	return nil
}

// Persist inserts the batch atomically.
func (s *JobSink) Persist(ctx context.Context, records []crawler.JobRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := storage.NewRows(records, s.clock.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(s.table).CreateInBatches(&rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %w", crawler.ErrPersist, err)
	}
	return nil
}
