package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/utils"
)

type lotRepository struct {
	s *Store
}

func (r *lotRepository) Create(ctx context.Context, l *domain.ParkingLot) error {
	s := r.s
	s.lotsMu.Lock()
	defer s.lotsMu.Unlock()

	s.nextLotID++
	l.ID = s.nextLotID
	l.CreatedAt = s.now()
	l.UpdatedAt = l.CreatedAt

	stored := *l
	stored.Features = slices.Clone(l.Features)
	s.lots[l.ID] = &lotEntry{lot: stored}
	return nil
}

func (r *lotRepository) GetByID(ctx context.Context, id int64) (*domain.ParkingLot, error) {
	e, ok := r.s.entry(id)
	if !ok {
		return nil, fmt.Errorf("parking lot %d: %w", id, domain.ErrNotFound)
	}
	l := e.snapshot()
	return &l, nil
}

// all returns a snapshot of every lot ordered by id.
func (r *lotRepository) all() []domain.ParkingLot {
	r.s.lotsMu.RLock()
	entries := make([]*lotEntry, 0, len(r.s.lots))
	for _, e := range r.s.lots {
		entries = append(entries, e)
	}
	r.s.lotsMu.RUnlock()

	lots := make([]domain.ParkingLot, 0, len(entries))
	for _, e := range entries {
		lots = append(lots, e.snapshot())
	}
	slices.SortFunc(lots, func(a, b domain.ParkingLot) int { return cmp.Compare(a.ID, b.ID) })
	return lots
}

func (r *lotRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.ParkingLot, error) {
	out := []domain.ParkingLot{}
	for _, l := range r.all() {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.ParkingLot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (r *lotRepository) ListActive(ctx context.Context, f domain.LotFilter) ([]domain.ParkingLot, int, error) {
	matched := []domain.ParkingLot{}
	for _, l := range r.all() {
		if utils.MatchesFilter(&l, f) {
			matched = append(matched, l)
		}
	}

	if f.Sort == domain.LotSortPrice {
		matched = utils.RankByPrice(matched)
	} else {
		matched = utils.RankByAvailability(matched)
	}
	return utils.Paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func (r *lotRepository) Update(ctx context.Context, l *domain.ParkingLot) error {
	e, ok := r.s.entry(l.ID)
	if !ok {
		return fmt.Errorf("parking lot %d: %w", l.ID, domain.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lot.ReservedSpaces() > l.TotalSpaces {
		return domain.Validationf("total spaces %d is below the number of reserved spaces", l.TotalSpaces)
	}

	cur := &e.lot
	cur.Name = l.Name
	cur.Location = l.Location
	cur.Description = l.Description
	cur.Latitude = l.Latitude
	cur.Longitude = l.Longitude
	cur.PricePerHour = l.PricePerHour
	cur.Features = slices.Clone(l.Features)
	cur.Is24Hours = l.Is24Hours
	cur.OpeningTime = l.OpeningTime
	cur.ClosingTime = l.ClosingTime
	cur.AvailableSpaces += l.TotalSpaces - cur.TotalSpaces
	cur.TotalSpaces = l.TotalSpaces
	cur.UpdatedAt = r.s.now()
	l.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r *lotRepository) Deactivate(ctx context.Context, id int64) error {
	e, ok := r.s.entry(id)
	if !ok {
		return fmt.Errorf("parking lot %d: %w", id, domain.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lot.IsActive = false
	e.lot.UpdatedAt = r.s.now()
	return nil
}

func (r *lotRepository) Delete(ctx context.Context, id int64) error {
	s := r.s
	s.bookingsMu.RLock()
	for _, b := range s.bookings {
		if b.ParkingLotID == id {
			s.bookingsMu.RUnlock()
			return fmt.Errorf("parking lot %d: %w", id, domain.ErrLotHasActiveBookings)
		}
	}
	s.bookingsMu.RUnlock()

	s.lotsMu.Lock()
	defer s.lotsMu.Unlock()
	if _, ok := s.lots[id]; !ok {
		return fmt.Errorf("parking lot %d: %w", id, domain.ErrNotFound)
	}
	delete(s.lots, id)

	s.resMu.Lock()
	for key, res := range s.reservations {
		if res.ParkingLotID == id {
			delete(s.reservations, key)
		}
	}
	s.resMu.Unlock()
	return nil
}
