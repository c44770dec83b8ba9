package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspace-backend/internal/domain"
)

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS parking_lots").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, Migrate(context.Background(), db))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS parking_lots").WillReturnError(assert.AnError)
	assert.Error(t, Migrate(context.Background(), db))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, wrap("op", nil))
	assert.ErrorIs(t, wrap("op", sql.ErrNoRows), domain.ErrNotFound)
	assert.ErrorIs(t, wrap("op", &pq.Error{Code: "23503"}), domain.ErrLotHasActiveBookings)
	assert.ErrorIs(t, wrap("op", &pq.Error{Code: "23514"}), domain.ErrValidation)
	assert.ErrorIs(t, wrap("op", assert.AnError), domain.ErrPersistence)
}

func TestStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	repos := store.Repositories()
	assert.NotNil(t, repos.Lots)
	assert.NotNil(t, repos.Ledger)

	mock.ExpectPing()
	assert.NoError(t, repos.Health.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
