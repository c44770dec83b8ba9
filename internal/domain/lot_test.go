package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLotFilterValidate(t *testing.T) {
	neg := -1.0
	origin := &Coordinates{Latitude: -17.8216, Longitude: 31.0492}

	tests := []struct {
		name    string
		filter  LotFilter
		wantErr bool
	}{
		{"Zero filter", LotFilter{}, false},
		{"Negative limit", LotFilter{Limit: -1}, true},
		{"Negative offset", LotFilter{Offset: -5}, true},
		{"Negative min price", LotFilter{MinPrice: &neg}, true},
		{"Unknown sort", LotFilter{Sort: "rating"}, true},
		{"Proximity without origin", LotFilter{Sort: LotSortProximity}, true},
		{"Proximity with origin", LotFilter{Sort: LotSortProximity, Origin: origin}, false},
		{"Origin out of range", LotFilter{Origin: &Coordinates{Latitude: 91}}, true},
		{"Negative radius", LotFilter{RadiusKm: -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParkingLotOccupancy(t *testing.T) {
	l := &ParkingLot{TotalSpaces: 150, AvailableSpaces: 45}
	assert.Equal(t, 105, l.ReservedSpaces())
	assert.InDelta(t, 70.0, l.OccupancyPercentage(), 1e-9)

	assert.Zero(t, (&ParkingLot{}).OccupancyPercentage())
}
