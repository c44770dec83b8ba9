package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"parkspace-backend/internal/domain"
)

type ledgerRepository struct {
	s *Store
}

func (r *ledgerRepository) Reserve(ctx context.Context, lotID int64, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	e, ok := r.s.entry(lotID)
	if !ok {
		return fmt.Errorf("parking lot %d: %w", lotID, domain.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lot.IsActive {
		return fmt.Errorf("parking lot %d is inactive: %w", lotID, domain.ErrNotFound)
	}
	r.s.resMu.Lock()
	defer r.s.resMu.Unlock()
	res, exists := r.s.reservations[key]
	if exists && res.ReleasedAt == nil {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateReservation, key)
	}
	if e.lot.AvailableSpaces <= 0 {
		return domain.ErrCapacityExceeded
	}
	// a released key may be held again
	r.s.reservations[key] = &domain.SpaceReservation{Key: key, ParkingLotID: lotID, ReservedAt: r.s.now()}
	e.lot.AvailableSpaces--
	return nil
}

func (r *ledgerRepository) Release(ctx context.Context, lotID int64, key string) (bool, error) {
	e, ok := r.s.entry(lotID)
	if !ok {
		return false, fmt.Errorf("parking lot %d: %w", lotID, domain.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	r.s.resMu.Lock()
	defer r.s.resMu.Unlock()
	res, exists := r.s.reservations[key]
	if !exists || res.ParkingLotID != lotID {
		return false, fmt.Errorf("reservation %s: %w", key, domain.ErrNotFound)
	}
	if res.ReleasedAt != nil {
		return false, nil
	}
	res.ReleasedAt = ptr(r.s.now())
	e.lot.AvailableSpaces = min(e.lot.AvailableSpaces+1, e.lot.TotalSpaces)
	return true, nil
}

func (r *ledgerRepository) ListStranded(ctx context.Context, olderThan time.Time, limit int) ([]domain.SpaceReservation, error) {
	held := map[string]bool{}
	r.s.bookingsMu.RLock()
	for _, b := range r.s.bookings {
		if b.Status == domain.BookingStatusConfirmed {
			held[b.ReservationKey] = true
		}
	}
	r.s.bookingsMu.RUnlock()

	r.s.resMu.Lock()
	out := []domain.SpaceReservation{}
	for _, res := range r.s.reservations {
		if res.ReleasedAt == nil && res.ReservedAt.Before(olderThan) && !held[res.Key] {
			out = append(out, *res)
		}
	}
	r.s.resMu.Unlock()

	slices.SortFunc(out, func(a, b domain.SpaceReservation) int { return a.ReservedAt.Compare(b.ReservedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
