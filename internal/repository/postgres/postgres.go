package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/repository"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
	repository.LotRepository
	repository.BookingRepository
	repository.LedgerRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                db,
		LotRepository:     NewLotRepository(db),
		BookingRepository: NewBookingRepository(db),
		LedgerRepository:  NewLedgerRepository(db),
	}
}

// Repositories exposes the store as the set the service layer consumes.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Lots:     s.LotRepository,
		Bookings: s.BookingRepository,
		Ledger:   s.LedgerRepository,
		Health:   s,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.DatabaseCall("migrate", "schema.sql")
	_, err := db.ExecContext(ctx, schema)
	logger.DatabaseResult("migrate", 0, err)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back unless fn returns nil
// and the commit succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", domain.ErrPersistence, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrPersistence, err)
	}
	committed = true
	return nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name()
	}
	return ""
}

// wrap converts driver errors into domain error kinds, keeping the
// operation name for the log trail.
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case pqCode(err) == "foreign_key_violation":
		return fmt.Errorf("%s: %w", op, domain.ErrLotHasActiveBookings)
	case pqCode(err) == "check_violation":
		return fmt.Errorf("%s: %w: %v", op, domain.ErrValidation, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrPersistence, err)
}
