package domain

import "time"

// SpaceReservation is one unit held against a lot's available counter.
type SpaceReservation struct {
	Key          string     `json:"reservation_key"`
	ParkingLotID int64      `json:"parking_lot_id"`
	ReservedAt   time.Time  `json:"reserved_at"`
	ReleasedAt   *time.Time `json:"released_at,omitempty"`
}
