package domain

import (
	"fmt"
	"time"
)

type ParkingLot struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	Name            string    `json:"name"`
	Location        string    `json:"location"`
	Description     string    `json:"description"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	TotalSpaces     int       `json:"total_spaces"`
	AvailableSpaces int       `json:"available_spaces"`
	PricePerHour    float64   `json:"price_per_hour"`
	Features        []string  `json:"features"`
	Is24Hours       bool      `json:"is_24_hours"`
	OpeningTime     *string   `json:"opening_time,omitempty"`
	ClosingTime     *string   `json:"closing_time,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (l *ParkingLot) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// ReservedSpaces is the number of units currently held by reservations.
func (l *ParkingLot) ReservedSpaces() int {
	return l.TotalSpaces - l.AvailableSpaces
}

// OccupancyPercentage is (total - available) / total * 100.
func (l *ParkingLot) OccupancyPercentage() float64 {
	if l.TotalSpaces <= 0 {
		return 0
	}
	return float64(l.ReservedSpaces()) / float64(l.TotalSpaces) * 100
}

// RankedLot is a lot annotated with its distance from a search origin.
type RankedLot struct {
	ParkingLot
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type LotSort string

const (
	LotSortDefault      LotSort = ""
	LotSortProximity    LotSort = "proximity"
	LotSortPrice        LotSort = "price"
	LotSortAvailability LotSort = "availability"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidArgument, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidArgument, c.Longitude)
	}
	return nil
}

// LotFilter narrows a search over active lots. Zero values mean "no constraint".
type LotFilter struct {
	Query         string
	MinPrice      *float64
	MaxPrice      *float64
	Features      []string
	AvailableOnly bool
	Limit         int
	Offset        int
	Sort          LotSort
	Origin        *Coordinates
	RadiusKm      float64
}

func (f LotFilter) Validate() error {
	if f.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidArgument)
	}
	if f.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrInvalidArgument)
	}
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return fmt.Errorf("%w: min_price must not be negative", ErrInvalidArgument)
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return fmt.Errorf("%w: max_price must not be negative", ErrInvalidArgument)
	}
	if f.RadiusKm < 0 {
		return fmt.Errorf("%w: radius must not be negative", ErrInvalidArgument)
	}
	switch f.Sort {
	case LotSortDefault, LotSortPrice, LotSortAvailability:
	case LotSortProximity:
		if f.Origin == nil {
			return fmt.Errorf("%w: proximity sort requires an origin", ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown sort %q", ErrInvalidArgument, f.Sort)
	}
	if f.Origin != nil {
		return f.Origin.Validate()
	}
	return nil
}

// LotInput carries the fields an owner supplies when creating a lot.
type LotInput struct {
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	Description  string   `json:"description"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	TotalSpaces  int      `json:"total_spaces"`
	PricePerHour float64  `json:"price_per_hour"`
	Features     []string `json:"features"`
	Is24Hours    bool     `json:"is_24_hours"`
	OpeningTime  *string  `json:"opening_time"`
	ClosingTime  *string  `json:"closing_time"`
}

// LotPatch is a partial update; nil fields are left untouched.
type LotPatch struct {
	Name         *string   `json:"name"`
	Location     *string   `json:"location"`
	Description  *string   `json:"description"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	TotalSpaces  *int      `json:"total_spaces"`
	PricePerHour *float64  `json:"price_per_hour"`
	Features     *[]string `json:"features"`
	Is24Hours    *bool     `json:"is_24_hours"`
	OpeningTime  *string   `json:"opening_time"`
	ClosingTime  *string   `json:"closing_time"`
}

// LotStats aggregates booking activity for one lot.
type LotStats struct {
	LotID               int64   `json:"lot_id"`
	TotalBookings       int     `json:"total_bookings"`
	ActiveBookings      int     `json:"active_bookings"`
	CompletedBookings   int     `json:"completed_bookings"`
	CancelledBookings   int     `json:"cancelled_bookings"`
	RecentBookings      int     `json:"recent_bookings"`
	TotalRevenue        float64 `json:"total_revenue"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
}

// BookingCounts is the raw aggregate a booking store reports for a lot.
type BookingCounts struct {
	Total     int
	Active    int
	Completed int
	Cancelled int
	Recent    int
	Revenue   float64
}

// LotPage is one page of search results plus the size of the full result set.
type LotPage struct {
	Lots  []RankedLot `json:"lots"`
	Total int         `json:"total"`
}
