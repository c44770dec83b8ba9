package service

import (
	"context"
	"time"

	"parkspace-backend/internal/domain"
)

type LotService interface {
	CreateLot(ctx context.Context, p domain.Principal, in domain.LotInput) (*domain.ParkingLot, error)
	GetLot(ctx context.Context, id int64) (*domain.ParkingLot, error)
	ListMyLots(ctx context.Context, p domain.Principal) ([]domain.ParkingLot, error)
	UpdateLot(ctx context.Context, p domain.Principal, id int64, patch domain.LotPatch) (*domain.ParkingLot, error)
	DeleteLot(ctx context.Context, p domain.Principal, id int64, permanent bool) error
	SearchLots(ctx context.Context, filter domain.LotFilter) (*domain.LotPage, error)
	GetLotStats(ctx context.Context, p domain.Principal, id int64) (*domain.LotStats, error)
}

type BookingService interface {
	QuoteBooking(ctx context.Context, lotID int64, start, end time.Time, durationType domain.DurationType) (*domain.PriceQuote, error)
	CreateBooking(ctx context.Context, p domain.Principal, in domain.CreateBookingInput) (*domain.BookingResult, error)
	GetBooking(ctx context.Context, p domain.Principal, id int64) (*domain.Booking, error)
	ListMyBookings(ctx context.Context, p domain.Principal, limit, offset int) ([]domain.Booking, int, error)
	ListLotBookings(ctx context.Context, p domain.Principal, lotID int64, limit, offset int) ([]domain.Booking, int, error)
	CancelBooking(ctx context.Context, p domain.Principal, id int64, reason string) (*domain.Booking, error)

	// Background maintenance, driven by the scheduler.
	CompleteElapsedBookings(ctx context.Context, now time.Time) (int, error)
	ReconcileStrandedReservations(ctx context.Context, now time.Time) (int, error)
}

type EmailService interface {
	SendBookingConfirmation(ctx context.Context, email string, lotName string, b *domain.Booking, currency string) error
	SendBookingCancellation(ctx context.Context, email string, lotName string, b *domain.Booking, currency string) error
}
