package repository

import (
	"context"
	"time"

	"parkspace-backend/internal/domain"
)

type LotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) error
	GetByID(ctx context.Context, id int64) (*domain.ParkingLot, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.ParkingLot, error)
	// ListActive returns one page of active lots matching the filter and the
	// total number of matches. Limit 0 returns every match.
	ListActive(ctx context.Context, filter domain.LotFilter) ([]domain.ParkingLot, int, error)
	// Update writes the editable fields and total_spaces in one step,
	// shifting available_spaces by the capacity delta. Fails with
	// ErrValidation, changing nothing, if reserved units would not fit.
	Update(ctx context.Context, lot *domain.ParkingLot) error
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, int, error)
	ListByLot(ctx context.Context, lotID int64, limit, offset int) ([]domain.Booking, int, error)
	// Cancel moves a confirmed booking to cancelled, flipping a paid payment
	// to refunded. ErrInvalidTransition if it was no longer confirmed.
	Cancel(ctx context.Context, id int64, reason string, at time.Time) (*domain.Booking, error)
	// Complete moves a confirmed booking to completed.
	// ErrInvalidTransition if it was no longer confirmed.
	Complete(ctx context.Context, id int64) error
	ListElapsed(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error)
	CountActiveByLot(ctx context.Context, lotID int64, now time.Time) (int, error)
	CountByLot(ctx context.Context, lotID int64) (int, error)
	CountsByLot(ctx context.Context, lotID int64, since time.Time) (*domain.BookingCounts, error)
}

// LedgerRepository owns the available_spaces counter. Every decrement is
// tied to a reservation key so releases are idempotent.
type LedgerRepository interface {
	// Reserve takes one unit. ErrCapacityExceeded when none are free,
	// ErrDuplicateReservation while the key is still held. A released key
	// may be reserved again.
	Reserve(ctx context.Context, lotID int64, key string) error
	// Release returns the unit held by key. It reports false, without
	// touching the counter, when the key was already released.
	Release(ctx context.Context, lotID int64, key string) (bool, error)
	// ListStranded returns unreleased reservations older than olderThan that
	// no confirmed booking holds: abandoned attempts, and cancelled or
	// completed bookings whose release did not go through.
	ListStranded(ctx context.Context, olderThan time.Time, limit int) ([]domain.SpaceReservation, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Repositories is the set of stores the service layer is built from.
type Repositories struct {
	Lots     LotRepository
	Bookings BookingRepository
	Ledger   LedgerRepository
	Health   Pinger
}
