package utils

import (
	"slices"
	"strings"

	"parkspace-backend/internal/domain"
)

// RankByProximity annotates each lot with its distance from (lat, lon) and
// orders nearest first. Lots without coordinates are dropped. Equal
// distances keep their input order.
func RankByProximity(lots []domain.ParkingLot, lat, lon float64) []domain.RankedLot {
	ranked := make([]domain.RankedLot, 0, len(lots))
	for _, lot := range lots {
		if !lot.HasCoordinates() {
			continue
		}
		d := DistanceKm(lat, lon, *lot.Latitude, *lot.Longitude)
		ranked = append(ranked, domain.RankedLot{ParkingLot: lot, DistanceKm: &d})
	}

	slices.SortStableFunc(ranked, func(a, b domain.RankedLot) int {
		switch {
		case *a.DistanceKm < *b.DistanceKm:
			return -1
		case *a.DistanceKm > *b.DistanceKm:
			return 1
		}
		return 0
	})
	return ranked
}

// WithinRadius keeps ranked lots no farther than radiusKm. A radius of zero
// or less disables the cut.
func WithinRadius(ranked []domain.RankedLot, radiusKm float64) []domain.RankedLot {
	if radiusKm <= 0 {
		return ranked
	}
	out := ranked[:0:0]
	for _, r := range ranked {
		if r.DistanceKm != nil && *r.DistanceKm <= radiusKm {
			out = append(out, r)
		}
	}
	return out
}

// Annotate attaches distances without reordering. Lots without coordinates
// are kept with a nil distance. A nil origin yields plain ranked lots.
func Annotate(lots []domain.ParkingLot, origin *domain.Coordinates) []domain.RankedLot {
	ranked := make([]domain.RankedLot, 0, len(lots))
	for _, lot := range lots {
		r := domain.RankedLot{ParkingLot: lot}
		if origin != nil && lot.HasCoordinates() {
			d := DistanceKm(origin.Latitude, origin.Longitude, *lot.Latitude, *lot.Longitude)
			r.DistanceKm = &d
		}
		ranked = append(ranked, r)
	}
	return ranked
}

// RankByPrice orders cheapest first, stable on ties.
func RankByPrice(lots []domain.ParkingLot) []domain.ParkingLot {
	out := slices.Clone(lots)
	slices.SortStableFunc(out, func(a, b domain.ParkingLot) int {
		switch {
		case a.PricePerHour < b.PricePerHour:
			return -1
		case a.PricePerHour > b.PricePerHour:
			return 1
		}
		return 0
	})
	return out
}

// RankByAvailability orders most free spaces first, stable on ties.
func RankByAvailability(lots []domain.ParkingLot) []domain.ParkingLot {
	out := slices.Clone(lots)
	slices.SortStableFunc(out, func(a, b domain.ParkingLot) int {
		return b.AvailableSpaces - a.AvailableSpaces
	})
	return out
}

// MatchesFilter applies the non-geographic predicates of a LotFilter to a
// single lot. Inactive lots never match.
func MatchesFilter(lot *domain.ParkingLot, f domain.LotFilter) bool {
	if !lot.IsActive {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(lot.Name), q) &&
			!strings.Contains(strings.ToLower(lot.Location), q) {
			return false
		}
	}
	if f.MinPrice != nil && lot.PricePerHour < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && lot.PricePerHour > *f.MaxPrice {
		return false
	}
	for _, want := range f.Features {
		if !slices.Contains(lot.Features, want) {
			return false
		}
	}
	if f.AvailableOnly && lot.AvailableSpaces <= 0 {
		return false
	}
	return true
}

// Paginate slices items by offset and limit. A limit of zero means no limit.
func Paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
