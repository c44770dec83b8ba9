package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspace-backend/internal/domain"
)

var (
	decrementSQL = regexp.QuoteMeta("UPDATE parking_lots SET available_spaces = available_spaces - 1")
	insertResSQL = regexp.QuoteMeta("INSERT INTO space_reservations")
	markSQL      = regexp.QuoteMeta("UPDATE space_reservations SET released_at = NOW()")
	incrementSQL = regexp.QuoteMeta("LEAST(available_spaces + 1, total_spaces)")
)

func TestLedgerRepository_Reserve(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(insertResSQL).WithArgs("res-1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(decrementSQL).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Reserve(ctx, 1, "res-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No spaces left rolls back the claim", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(insertResSQL).WithArgs("res-2", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(decrementSQL).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT is_active FROM parking_lots").WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
		mock.ExpectRollback()

		err := repo.Reserve(ctx, 1, "res-2")
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Inactive lot", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(insertResSQL).WithArgs("res-3", int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(decrementSQL).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT is_active FROM parking_lots").WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))
		mock.ExpectRollback()

		err := repo.Reserve(ctx, 3, "res-3")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown lot", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(insertResSQL).WithArgs("res-4", int64(99)).
			WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		err := repo.Reserve(ctx, 99, "res-4")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Held key is a duplicate before capacity is checked", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(insertResSQL).WithArgs("res-1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Reserve(ctx, 1, "res-1")
		assert.ErrorIs(t, err, domain.ErrDuplicateReservation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Released key is claimed again", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("WHERE space_reservations.released_at IS NOT NULL")).
			WithArgs("res-1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(decrementSQL).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Reserve(ctx, 1, "res-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_Release(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(markSQL).WithArgs("res-1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(incrementSQL).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		released, err := repo.Release(ctx, 1, "res-1")
		assert.NoError(t, err)
		assert.True(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Second release leaves the counter alone", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(markSQL).WithArgs("res-1", int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT released_at FROM space_reservations").WithArgs("res-1", int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"released_at"}).AddRow(time.Now()))
		mock.ExpectCommit()

		released, err := repo.Release(ctx, 1, "res-1")
		assert.NoError(t, err)
		assert.False(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown reservation", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(markSQL).WithArgs("nope", int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT released_at FROM space_reservations").WithArgs("nope", int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"released_at"}))
		mock.ExpectRollback()

		released, err := repo.Release(ctx, 1, "nope")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, released)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ListStranded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)
	cutoff := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	reservedAt := cutoff.Add(-time.Hour)

	mock.ExpectQuery("FROM space_reservations sr").WithArgs(cutoff, 100).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_key", "parking_lot_id", "reserved_at"}).
			AddRow("res-9", int64(4), reservedAt))

	out, err := repo.ListStranded(context.Background(), cutoff, 100)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "res-9", out[0].Key)
	assert.Equal(t, int64(4), out[0].ParkingLotID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
