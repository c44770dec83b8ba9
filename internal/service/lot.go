package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"parkspace-backend/internal/cache"
	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
	"parkspace-backend/internal/repository"
	"parkspace-backend/internal/utils"
)

// recentWindow is how far back GetLotStats counts "recent" bookings.
const recentWindow = 30 * 24 * time.Hour

type SearchLimits struct {
	DefaultLimit int
	MaxLimit     int
}

type lotService struct {
	lotRepo     repository.LotRepository
	bookingRepo repository.BookingRepository
	lotCache    cache.LotCache
	limits      SearchLimits
	now         func() time.Time
}

func NewLotService(
	lotRepo repository.LotRepository,
	bookingRepo repository.BookingRepository,
	lotCache cache.LotCache,
	limits SearchLimits,
) LotService {
	if lotCache == nil {
		lotCache = cache.NewNopLotCache()
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = 100
	}
	if limits.DefaultLimit <= 0 || limits.DefaultLimit > limits.MaxLimit {
		limits.DefaultLimit = min(50, limits.MaxLimit)
	}
	return &lotService{
		lotRepo:     lotRepo,
		bookingRepo: bookingRepo,
		lotCache:    lotCache,
		limits:      limits,
		now:         time.Now,
	}
}

func normalizeFeatures(features []string) []string {
	out := []string{}
	for _, f := range features {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// validateLot checks the invariants every stored lot must satisfy and
// normalizes its free-form fields in place.
func validateLot(l *domain.ParkingLot) error {
	l.Name = strings.TrimSpace(l.Name)
	l.Location = strings.TrimSpace(l.Location)
	if l.Name == "" {
		return domain.Validationf("name is required")
	}
	if l.Location == "" {
		return domain.Validationf("location is required")
	}
	if l.TotalSpaces < 1 {
		return domain.Validationf("total spaces must be at least 1")
	}
	if l.PricePerHour < 0 {
		return domain.Validationf("price per hour must not be negative")
	}
	if (l.Latitude == nil) != (l.Longitude == nil) {
		return domain.Validationf("latitude and longitude must be given together")
	}
	if l.HasCoordinates() {
		c := domain.Coordinates{Latitude: *l.Latitude, Longitude: *l.Longitude}
		if err := c.Validate(); err != nil {
			return domain.Validationf("%v", err)
		}
	}
	l.Features = normalizeFeatures(l.Features)

	if l.Is24Hours {
		l.OpeningTime, l.ClosingTime = nil, nil
		return nil
	}
	if (l.OpeningTime == nil) != (l.ClosingTime == nil) {
		return domain.Validationf("opening and closing time must be given together")
	}
	if l.OpeningTime != nil {
		open, err := utils.ParseClock(*l.OpeningTime)
		if err != nil {
			return domain.Validationf("opening time: %v", err)
		}
		closing, err := utils.ParseClock(*l.ClosingTime)
		if err != nil {
			return domain.Validationf("closing time: %v", err)
		}
		l.OpeningTime, l.ClosingTime = &open, &closing
	}
	return nil
}

func (s *lotService) CreateLot(ctx context.Context, p domain.Principal, in domain.LotInput) (*domain.ParkingLot, error) {
	if err := Authorize(p, ActionCreateLot); err != nil {
		return nil, err
	}

	lot := &domain.ParkingLot{
		OwnerID:         p.ID,
		Name:            in.Name,
		Location:        in.Location,
		Description:     in.Description,
		Latitude:        in.Latitude,
		Longitude:       in.Longitude,
		TotalSpaces:     in.TotalSpaces,
		AvailableSpaces: in.TotalSpaces,
		PricePerHour:    in.PricePerHour,
		Features:        in.Features,
		Is24Hours:       in.Is24Hours,
		OpeningTime:     in.OpeningTime,
		ClosingTime:     in.ClosingTime,
		IsActive:        true,
	}
	if err := validateLot(lot); err != nil {
		return nil, err
	}

	if err := s.lotRepo.Create(ctx, lot); err != nil {
		return nil, err
	}
	s.lotCache.Invalidate(ctx)

	logger.InfoContext(ctx, "Parking lot created", "lot_id", lot.ID, "owner_id", lot.OwnerID, "total_spaces", lot.TotalSpaces)
	return lot, nil
}

func (s *lotService) GetLot(ctx context.Context, id int64) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lot.IsActive {
		return nil, fmt.Errorf("parking lot %d: %w", id, domain.ErrNotFound)
	}
	return lot, nil
}

func (s *lotService) ListMyLots(ctx context.Context, p domain.Principal) ([]domain.ParkingLot, error) {
	if p.ID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	return s.lotRepo.ListByOwner(ctx, p.ID)
}

func applyPatch(lot *domain.ParkingLot, patch domain.LotPatch) {
	if patch.Name != nil {
		lot.Name = *patch.Name
	}
	if patch.Location != nil {
		lot.Location = *patch.Location
	}
	if patch.Description != nil {
		lot.Description = *patch.Description
	}
	if patch.Latitude != nil {
		lot.Latitude = patch.Latitude
	}
	if patch.Longitude != nil {
		lot.Longitude = patch.Longitude
	}
	if patch.PricePerHour != nil {
		lot.PricePerHour = *patch.PricePerHour
	}
	if patch.Features != nil {
		lot.Features = *patch.Features
	}
	if patch.Is24Hours != nil {
		lot.Is24Hours = *patch.Is24Hours
	}
	if patch.OpeningTime != nil {
		lot.OpeningTime = patch.OpeningTime
	}
	if patch.ClosingTime != nil {
		lot.ClosingTime = patch.ClosingTime
	}
}

func (s *lotService) UpdateLot(ctx context.Context, p domain.Principal, id int64, patch domain.LotPatch) (*domain.ParkingLot, error) {
	lot, err := s.lotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActionManageLot, lot.OwnerID); err != nil {
		return nil, err
	}

	applyPatch(lot, patch)
	if patch.TotalSpaces != nil {
		// checked against reserved units by the store
		lot.TotalSpaces = *patch.TotalSpaces
	}
	if err := validateLot(lot); err != nil {
		return nil, err
	}

	if err := s.lotRepo.Update(ctx, lot); err != nil {
		return nil, err
	}
	s.lotCache.Invalidate(ctx)

	logger.InfoContext(ctx, "Parking lot updated", "lot_id", id, "actor_id", p.ID)
	return s.lotRepo.GetByID(ctx, id)
}

func (s *lotService) DeleteLot(ctx context.Context, p domain.Principal, id int64, permanent bool) error {
	lot, err := s.lotRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(p, ActionManageLot, lot.OwnerID); err != nil {
		return err
	}
	if permanent {
		if err := Authorize(p, ActionHardDeleteLot); err != nil {
			return err
		}
	}

	active, err := s.bookingRepo.CountActiveByLot(ctx, id, s.now())
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%w: %d bookings have not ended", domain.ErrLotHasActiveBookings, active)
	}

	if permanent {
		err = s.lotRepo.Delete(ctx, id)
	} else {
		err = s.lotRepo.Deactivate(ctx, id)
	}
	if err != nil {
		return err
	}
	s.lotCache.Invalidate(ctx)

	logger.InfoContext(ctx, "Parking lot deleted", "lot_id", id, "actor_id", p.ID, "permanent", permanent)
	return nil
}

func (s *lotService) SearchLots(ctx context.Context, f domain.LotFilter) (*domain.LotPage, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Limit == 0 {
		f.Limit = s.limits.DefaultLimit
	}
	f.Limit = min(f.Limit, s.limits.MaxLimit)
	f.Features = normalizeFeatures(f.Features)

	cached, cacheKey, hit := s.lotCache.GetSearch(ctx, f)
	if hit {
		return cached, nil
	}

	var page *domain.LotPage
	if f.Sort == domain.LotSortProximity {
		candidates := f
		candidates.Limit, candidates.Offset, candidates.Sort = 0, 0, domain.LotSortDefault
		lots, _, err := s.lotRepo.ListActive(ctx, candidates)
		if err != nil {
			return nil, err
		}
		ranked := utils.RankByProximity(lots, f.Origin.Latitude, f.Origin.Longitude)
		ranked = utils.WithinRadius(ranked, f.RadiusKm)
		page = &domain.LotPage{Lots: utils.Paginate(ranked, f.Limit, f.Offset), Total: len(ranked)}
	} else {
		lots, total, err := s.lotRepo.ListActive(ctx, f)
		if err != nil {
			return nil, err
		}
		page = &domain.LotPage{Lots: utils.Annotate(lots, f.Origin), Total: total}
	}

	s.lotCache.SetSearch(ctx, cacheKey, page)
	return page, nil
}

func (s *lotService) GetLotStats(ctx context.Context, p domain.Principal, id int64) (*domain.LotStats, error) {
	lot, err := s.lotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(p, ActionViewLotStats, lot.OwnerID); err != nil {
		return nil, err
	}

	counts, err := s.bookingRepo.CountsByLot(ctx, id, s.now().Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	return &domain.LotStats{
		LotID:               id,
		TotalBookings:       counts.Total,
		ActiveBookings:      counts.Active,
		CompletedBookings:   counts.Completed,
		CancelledBookings:   counts.Cancelled,
		RecentBookings:      counts.Recent,
		TotalRevenue:        domain.RoundCents(counts.Revenue),
		OccupancyPercentage: domain.RoundCents(lot.OccupancyPercentage()),
	}, nil
}
