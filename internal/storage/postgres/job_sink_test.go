package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/storage"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testClock = fixedClock{now: time.Date(2024, time.June, 3, 9, 0, 0, 0, time.Local)}

func sampleRecords() []crawler.JobRecord {
	posted := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.Local)
	return []crawler.JobRecord{
		{
			Title: "Go Developer", CompanyName: "Acme", Location: "Taguig", Salary: crawler.NotAvailable,
			Category: "IT", SubCategory: "Dev", Description: "Remote", Posted: "2d ago", PostedDate: &posted,
		},
		{
			Title: "Barista", CompanyName: crawler.NotAvailable, Location: "Cebu", Salary: crawler.NotAvailable,
			Category: crawler.NotAvailable, SubCategory: crawler.NotAvailable, Description: crawler.NotAvailable,
			Posted: "yesterday",
		},
	}
}

func TestPersistCommitsBatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewJobSinkWithPool(mock, "jaws", testClock, nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jaws").
		WithArgs("06/03/2024", "Go Developer", "Acme", "Taguig", "IT", "Dev", "N/A", "Remote", "2d ago", "06/01/2024").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO jaws").
		WithArgs("06/03/2024", "Barista", "N/A", "Cebu", "N/A", "N/A", "N/A", "N/A", "yesterday", nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, sink.Persist(context.Background(), sampleRecords()))
	require.NoError(t, mock.ExpectationsWereMet())
}

// anyRowArgs matches one value per persisted column.
func anyRowArgs() []any {
	args := make([]any, len(storage.Columns))
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPersistRollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewJobSinkWithPool(mock, "jaws", testClock, nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jaws").
		WithArgs(anyRowArgs()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO jaws").
		WithArgs(anyRowArgs()...).
		WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	err = sink.Persist(context.Background(), sampleRecords())
	require.ErrorIs(t, err, crawler.ErrPersist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistReportsBeginFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewJobSinkWithPool(mock, "", testClock, nil)
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err = sink.Persist(context.Background(), sampleRecords())
	require.ErrorIs(t, err, crawler.ErrPersist)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistEmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sink, err := NewJobSinkWithPool(mock, "jaws", testClock, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Persist(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewJobSinkWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewJobSinkWithPool(nil, "jaws", testClock, nil)
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewJobSinkWithPool(mock, "bad-name", testClock, nil)
	require.Error(t, err)
}

func TestNewJobSinkRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewJobSink(context.Background(), Config{}, testClock, nil)
	require.EqualError(t, err, "store.dsn is required")
}
