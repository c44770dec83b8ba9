// Package memory is an in-process implementation of the repositories, for
// local development without PostgreSQL and for tests. Each lot has its own
// mutex so reservations on different lots never contend.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/repository"
)

type lotEntry struct {
	mu  sync.Mutex
	lot domain.ParkingLot
}

func (e *lotEntry) snapshot() domain.ParkingLot {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.lot
	l.Features = slices.Clone(e.lot.Features)
	return l
}

type Store struct {
	lotsMu    sync.RWMutex
	lots      map[int64]*lotEntry
	nextLotID int64

	bookingsMu    sync.RWMutex
	bookings      map[int64]*domain.Booking
	nextBookingID int64

	resMu        sync.Mutex
	reservations map[string]*domain.SpaceReservation

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		lots:         make(map[int64]*lotEntry),
		bookings:     make(map[int64]*domain.Booking),
		reservations: make(map[string]*domain.SpaceReservation),
		now:          time.Now,
	}
}

// WithClock replaces the time source used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Lots:     &lotRepository{s: s},
		Bookings: &bookingRepository{s: s},
		Ledger:   &ledgerRepository{s: s},
		Health:   s,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) entry(id int64) (*lotEntry, bool) {
	s.lotsMu.RLock()
	defer s.lotsMu.RUnlock()
	e, ok := s.lots[id]
	return e, ok
}

// Seed inserts lots as given, assigning ids to those without one.
func (s *Store) Seed(lots ...domain.ParkingLot) {
	s.lotsMu.Lock()
	defer s.lotsMu.Unlock()
	for _, l := range lots {
		if l.ID == 0 {
			s.nextLotID++
			l.ID = s.nextLotID
		} else if l.ID > s.nextLotID {
			s.nextLotID = l.ID
		}
		if l.CreatedAt.IsZero() {
			l.CreatedAt = s.now()
			l.UpdatedAt = l.CreatedAt
		}
		s.lots[l.ID] = &lotEntry{lot: l}
	}
}

func ptr[T any](v T) *T { return &v }

// HarareLots is a fixed set of lots around Harare used for demos and tests.
func HarareLots(ownerID int64) []domain.ParkingLot {
	return []domain.ParkingLot{
		{
			OwnerID: ownerID, Name: "Harare CBD Central Parking", Location: "Corner First St & Jason Moyo Ave, Harare",
			Latitude: ptr(-17.8216), Longitude: ptr(31.0492), TotalSpaces: 150, AvailableSpaces: 45, PricePerHour: 2.50,
			Features: []string{"security", "covered", "cctv"}, OpeningTime: ptr("06:00"), ClosingTime: ptr("22:00"), IsActive: true,
		},
		{
			OwnerID: ownerID, Name: "Eastgate Mall Parking", Location: "Robert Mugabe Rd, Harare",
			Latitude: ptr(-17.8167), Longitude: ptr(31.0833), TotalSpaces: 300, AvailableSpaces: 120, PricePerHour: 1.50,
			Features: []string{"security", "shopping"}, Is24Hours: true, IsActive: true,
		},
		{
			OwnerID: ownerID, Name: "Avondale Shopping Center", Location: "King George Rd, Avondale, Harare",
			Latitude: ptr(-17.8047), Longitude: ptr(31.0669), TotalSpaces: 200, AvailableSpaces: 80, PricePerHour: 2.00,
			Features: []string{"shopping", "ev_charging"}, OpeningTime: ptr("07:00"), ClosingTime: ptr("21:00"), IsActive: true,
		},
		{
			OwnerID: ownerID, Name: "Borrowdale Village Mall", Location: "Borrowdale Rd, Borrowdale, Harare",
			Latitude: ptr(-17.7833), Longitude: ptr(31.0833), TotalSpaces: 400, AvailableSpaces: 200, PricePerHour: 1.75,
			Features: []string{"security", "covered", "shopping"}, Is24Hours: true, IsActive: true,
		},
		{
			OwnerID: ownerID, Name: "Mufakose Shopping Centre", Location: "Mufakose, Harare",
			Latitude: ptr(-17.8667), Longitude: ptr(30.9833), TotalSpaces: 100, AvailableSpaces: 60, PricePerHour: 1.00,
			Features: []string{"shopping"}, OpeningTime: ptr("08:00"), ClosingTime: ptr("18:00"), IsActive: true,
		},
	}
}
