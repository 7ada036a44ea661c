// Package sqlite provides a local SQLite job sink backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage"
)

// JobSink writes each page's records in one transaction to a SQLite file.
type JobSink struct {
	db        *sql.DB
	table     string
	insertSQL string
	clock     crawler.Clock
	logger    *zap.Logger
}

// NewJobSink opens (or creates) the database at path and ensures the table exists.
func NewJobSink(ctx context.Context, path, table string, clock crawler.Clock, logger *zap.Logger) (*JobSink, error) {
	if path == "" {
		return nil, fmt.Errorf("store.dsn is required")
	}
	table, err := storage.TableName(table)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableSQL(table)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating %s table: %w", table, err)
	}
	return &JobSink{
		db:        db,
		table:     table,
		insertSQL: storage.InsertSQL(table, func(int) string { return "?" }),
		clock:     clock,
		logger:    logger,
	}, nil
}

// dsn builds a modernc sqlite DSN like file:foo.db?_pragma=busy_timeout(5000),
// keeping any query parameters already present on path.
func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_pragma=busy_timeout(5000)"
}

func createTableSQL(table string) string {
	cols := make([]string, len(storage.Columns))
	for i, c := range storage.Columns {
		cols[i] = c + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", table, strings.Join(cols, ",\n\t"))
}

// Persist inserts the batch in a single transaction.
func (s *JobSink) Persist(ctx context.Context, records []crawler.JobRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := storage.NewRows(records, s.clock.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", crawler.ErrPersist, err)
	}
	stmt, err := tx.PrepareContext(ctx, s.insertSQL)
	if err != nil {
		s.rollback(tx)
		return fmt.Errorf("%w: prepare: %w", crawler.ErrPersist, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.Args()...); err != nil {
			s.rollback(tx)
			return fmt.Errorf("%w: insert row %d: %w", crawler.ErrPersist, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", crawler.ErrPersist, err)
	}
	return nil
}

func (s *JobSink) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		s.logger.Warn("rollback failed", zap.String("table", s.table), zap.Error(err))
	}
}

// Count returns the number of stored rows.
func (s *JobSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *JobSink) Close() error {
	return s.db.Close()
}
