package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/utils"
)

type bookingRepository struct {
	s *Store
}

func copyBooking(b *domain.Booking) *domain.Booking {
	c := *b
	if b.IdempotencyKey != nil {
		c.IdempotencyKey = ptr(*b.IdempotencyKey)
	}
	if b.CancelledAt != nil {
		c.CancelledAt = ptr(*b.CancelledAt)
	}
	return &c
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	s := r.s
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	if b.IdempotencyKey != nil {
		for _, existing := range s.bookings {
			if existing.UserID == b.UserID && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *b.IdempotencyKey {
				return fmt.Errorf("idempotency key %q: %w", *b.IdempotencyKey, domain.ErrDuplicateReservation)
			}
		}
	}

	s.nextBookingID++
	b.ID = s.nextBookingID
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = copyBooking(b)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	r.s.bookingsMu.RLock()
	defer r.s.bookingsMu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	return copyBooking(b), nil
}

func (r *bookingRepository) GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Booking, error) {
	r.s.bookingsMu.RLock()
	defer r.s.bookingsMu.RUnlock()
	for _, b := range r.s.bookings {
		if b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			return copyBooking(b), nil
		}
	}
	return nil, fmt.Errorf("idempotency key %q: %w", key, domain.ErrNotFound)
}

// filter returns matching bookings newest first.
func (r *bookingRepository) filter(keep func(*domain.Booking) bool) []domain.Booking {
	r.s.bookingsMu.RLock()
	out := []domain.Booking{}
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, *copyBooking(b))
		}
	}
	r.s.bookingsMu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, int, error) {
	all := r.filter(func(b *domain.Booking) bool { return b.UserID == userID })
	return utils.Paginate(all, limit, offset), len(all), nil
}

func (r *bookingRepository) ListByLot(ctx context.Context, lotID int64, limit, offset int) ([]domain.Booking, int, error) {
	all := r.filter(func(b *domain.Booking) bool { return b.ParkingLotID == lotID })
	return utils.Paginate(all, limit, offset), len(all), nil
}

func (r *bookingRepository) Cancel(ctx context.Context, id int64, reason string, at time.Time) (*domain.Booking, error) {
	s := r.s
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	if b.Status != domain.BookingStatusConfirmed {
		return nil, fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, b.Status)
	}
	b.Status = domain.BookingStatusCancelled
	if b.PaymentStatus == domain.PaymentStatusPaid {
		b.PaymentStatus = domain.PaymentStatusRefunded
	}
	b.CancellationReason = reason
	b.CancelledAt = ptr(at)
	b.UpdatedAt = s.now()
	return copyBooking(b), nil
}

func (r *bookingRepository) Complete(ctx context.Context, id int64) error {
	s := r.s
	s.bookingsMu.Lock()
	defer s.bookingsMu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	if b.Status != domain.BookingStatusConfirmed {
		return fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, b.Status)
	}
	b.Status = domain.BookingStatusCompleted
	b.UpdatedAt = s.now()
	return nil
}

func (r *bookingRepository) ListElapsed(ctx context.Context, now time.Time, limit int) ([]domain.Booking, error) {
	out := r.filter(func(b *domain.Booking) bool {
		return b.Status == domain.BookingStatusConfirmed && !b.EndTime.After(now)
	})
	slices.SortStableFunc(out, func(a, b domain.Booking) int { return a.EndTime.Compare(b.EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *bookingRepository) CountActiveByLot(ctx context.Context, lotID int64, now time.Time) (int, error) {
	return len(r.filter(func(b *domain.Booking) bool {
		return b.ParkingLotID == lotID && b.Status == domain.BookingStatusConfirmed && !b.EndTime.Before(now)
	})), nil
}

func (r *bookingRepository) CountByLot(ctx context.Context, lotID int64) (int, error) {
	return len(r.filter(func(b *domain.Booking) bool { return b.ParkingLotID == lotID })), nil
}

func (r *bookingRepository) CountsByLot(ctx context.Context, lotID int64, since time.Time) (*domain.BookingCounts, error) {
	c := &domain.BookingCounts{}
	for _, b := range r.filter(func(b *domain.Booking) bool { return b.ParkingLotID == lotID }) {
		c.Total++
		switch b.Status {
		case domain.BookingStatusConfirmed:
			c.Active++
		case domain.BookingStatusCompleted:
			c.Completed++
			c.Revenue += b.TotalCost
		case domain.BookingStatusCancelled:
			c.Cancelled++
		}
		if !b.CreatedAt.Before(since) {
			c.Recent++
		}
	}
	return c, nil
}
