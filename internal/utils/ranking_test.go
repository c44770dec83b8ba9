package utils

import (
	"testing"

	"parkspace-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func lot(id int64, name string, lat, lon *float64, available int, price float64, features ...string) domain.ParkingLot {
	return domain.ParkingLot{
		ID:              id,
		Name:            name,
		Location:        name + " Road",
		Latitude:        lat,
		Longitude:       lon,
		TotalSpaces:     available + 10,
		AvailableSpaces: available,
		PricePerHour:    price,
		Features:        features,
		IsActive:        true,
	}
}

func fixtureLots() []domain.ParkingLot {
	return []domain.ParkingLot{
		lot(1, "Harare CBD Central Parking", ptr(-17.8216), ptr(31.0492), 45, 2.50, "covered", "security"),
		lot(2, "Eastgate Mall Parking", ptr(-17.8167), ptr(31.0833), 120, 1.50, "security"),
		lot(3, "Avondale Shopping Center", ptr(-17.8047), ptr(31.0669), 80, 2.00),
		lot(4, "Borrowdale Village Mall", ptr(-17.7833), ptr(31.0833), 200, 1.75, "covered"),
		lot(5, "Mufakose Shopping Centre", ptr(-17.8667), ptr(30.9833), 60, 1.00),
		lot(6, "Unmapped Yard", nil, nil, 5, 0.50),
	}
}

func ids[T any](items []T, id func(T) int64) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

func rankedID(r domain.RankedLot) int64 { return r.ID }
func lotID(l domain.ParkingLot) int64   { return l.ID }

func TestRankByProximity(t *testing.T) {
	t.Run("Nearest first from CBD", func(t *testing.T) {
		ranked := RankByProximity(fixtureLots(), -17.8216, 31.0492)
		require.Len(t, ranked, 5)
		assert.Equal(t, int64(1), ranked[0].ID)
		assert.Equal(t, 0.0, *ranked[0].DistanceKm)
		for i := 1; i < len(ranked); i++ {
			assert.LessOrEqual(t, *ranked[i-1].DistanceKm, *ranked[i].DistanceKm)
		}
	})

	t.Run("Lots without coordinates are excluded", func(t *testing.T) {
		ranked := RankByProximity(fixtureLots(), -17.8216, 31.0492)
		assert.NotContains(t, ids(ranked, rankedID), int64(6))
	})

	t.Run("Ties keep input order", func(t *testing.T) {
		lots := []domain.ParkingLot{
			lot(10, "A", ptr(1.0), ptr(1.0), 1, 1),
			lot(11, "B", ptr(1.0), ptr(1.0), 1, 1),
			lot(12, "C", ptr(1.0), ptr(1.0), 1, 1),
		}
		ranked := RankByProximity(lots, 0, 0)
		assert.Equal(t, []int64{10, 11, 12}, ids(ranked, rankedID))
	})

	t.Run("Empty input", func(t *testing.T) {
		assert.Empty(t, RankByProximity(nil, 0, 0))
	})
}

func TestWithinRadius(t *testing.T) {
	ranked := RankByProximity(fixtureLots(), -17.8216, 31.0492)

	near := WithinRadius(ranked, 5)
	for _, r := range near {
		assert.LessOrEqual(t, *r.DistanceKm, 5.0)
	}
	assert.Contains(t, ids(near, rankedID), int64(2))
	assert.NotContains(t, ids(near, rankedID), int64(5))

	assert.Len(t, WithinRadius(ranked, 0), len(ranked))
}

func TestAnnotate(t *testing.T) {
	lots := fixtureLots()
	annotated := Annotate(lots, &domain.Coordinates{Latitude: -17.8216, Longitude: 31.0492})
	require.Len(t, annotated, len(lots))
	assert.Equal(t, ids(lots, lotID), ids(annotated, rankedID))
	assert.Nil(t, annotated[5].DistanceKm)
	assert.NotNil(t, annotated[0].DistanceKm)

	plain := Annotate(lots, nil)
	assert.Nil(t, plain[0].DistanceKm)
}

func TestRankByPrice(t *testing.T) {
	ranked := RankByPrice(fixtureLots())
	assert.Equal(t, []int64{6, 5, 2, 4, 3, 1}, ids(ranked, lotID))
}

func TestRankByAvailability(t *testing.T) {
	lots := fixtureLots()
	lots[2].AvailableSpaces = 120 // tie with Eastgate

	ranked := RankByAvailability(lots)
	assert.Equal(t, []int64{4, 2, 3, 5, 1, 6}, ids(ranked, lotID))
	// input slice is not reordered
	assert.Equal(t, int64(1), lots[0].ID)
}

func TestMatchesFilter(t *testing.T) {
	lots := fixtureLots()

	t.Run("Query matches name or location case-insensitively", func(t *testing.T) {
		assert.True(t, MatchesFilter(&lots[1], domain.LotFilter{Query: "eastgate"}))
		assert.True(t, MatchesFilter(&lots[1], domain.LotFilter{Query: "MALL PARKING ROAD"}))
		assert.False(t, MatchesFilter(&lots[1], domain.LotFilter{Query: "avondale"}))
	})

	t.Run("Price range", func(t *testing.T) {
		f := domain.LotFilter{MinPrice: ptr(1.5), MaxPrice: ptr(2.0)}
		assert.True(t, MatchesFilter(&lots[1], f))
		assert.True(t, MatchesFilter(&lots[2], f))
		assert.False(t, MatchesFilter(&lots[0], f))
		assert.False(t, MatchesFilter(&lots[4], f))
	})

	t.Run("Features must all be present", func(t *testing.T) {
		f := domain.LotFilter{Features: []string{"covered", "security"}}
		assert.True(t, MatchesFilter(&lots[0], f))
		assert.False(t, MatchesFilter(&lots[3], f))
	})

	t.Run("Available only", func(t *testing.T) {
		full := lots[0]
		full.AvailableSpaces = 0
		assert.False(t, MatchesFilter(&full, domain.LotFilter{AvailableOnly: true}))
		assert.True(t, MatchesFilter(&full, domain.LotFilter{}))
	})

	t.Run("Inactive lots never match", func(t *testing.T) {
		inactive := lots[0]
		inactive.IsActive = false
		assert.False(t, MatchesFilter(&inactive, domain.LotFilter{}))
	})
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Paginate(items, 2, 0))
	assert.Equal(t, []int{4, 5}, Paginate(items, 2, 3))
	assert.Equal(t, []int{3, 4, 5}, Paginate(items, 0, 2))
	assert.Empty(t, Paginate(items, 2, 10))
}
