package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type DurationType string

const (
	DurationHourly    DurationType = "hourly"
	DurationFullDay   DurationType = "full_day"
	DurationOvernight DurationType = "overnight"
)

func (d DurationType) Valid() bool {
	switch d {
	case DurationHourly, DurationFullDay, DurationOvernight:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodMobileWalletA PaymentMethod = "mobile_wallet_a"
	PaymentMethodMobileWalletB PaymentMethod = "mobile_wallet_b"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodMobileWalletA, PaymentMethodMobileWalletB:
		return true
	}
	return false
}

type Booking struct {
	ID                 int64         `json:"id"`
	UserID             int64         `json:"user_id"`
	UserEmail          string        `json:"user_email,omitempty"`
	ParkingLotID       int64         `json:"parking_lot_id"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time"`
	VehicleInfo        string        `json:"vehicle_info"`
	ContactNumber      string        `json:"contact_number"`
	SpecialRequests    string        `json:"special_requests,omitempty"`
	DurationType       DurationType  `json:"duration_type"`
	PaymentMethod      PaymentMethod `json:"payment_method"`
	TotalCost          float64       `json:"total_cost"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	TransactionID      string        `json:"transaction_id,omitempty"`
	ReservationKey     string        `json:"-"`
	IdempotencyKey     *string       `json:"-"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Cancellable reports whether the booking may still be cancelled at now.
func (b *Booking) Cancellable(now time.Time) bool {
	return b.Status == BookingStatusConfirmed && now.Before(b.StartTime)
}

// Elapsed reports whether a confirmed booking has run past its end time.
func (b *Booking) Elapsed(now time.Time) bool {
	return b.Status == BookingStatusConfirmed && !now.Before(b.EndTime)
}

// PaymentDetails holds the method-specific fields collected at checkout.
// Only the fields relevant to the chosen method are required.
type PaymentDetails struct {
	CardNumber  string `json:"card_number,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
	CVV         string `json:"cvv,omitempty"`
	CardName    string `json:"card_name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type CreateBookingInput struct {
	ParkingLotID    int64          `json:"parking_lot_id"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	VehicleInfo     string         `json:"vehicle_info"`
	ContactNumber   string         `json:"contact_number"`
	SpecialRequests string         `json:"special_requests"`
	DurationType    DurationType   `json:"duration_type"`
	PaymentMethod   PaymentMethod  `json:"payment_method"`
	PaymentDetails  PaymentDetails `json:"payment_details"`
	IdempotencyKey  string         `json:"-"`
}

// Validate checks the request shape relative to now. It does not look at
// capacity or the lot itself.
func (in CreateBookingInput) Validate(now time.Time) error {
	if in.ParkingLotID <= 0 {
		return Validationf("parking lot is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return ErrInvalidTimeRange
	}
	if !in.StartTime.After(now) {
		return Validationf("check-in time must be in the future")
	}
	if in.VehicleInfo == "" {
		return Validationf("vehicle information is required")
	}
	if in.ContactNumber == "" {
		return Validationf("contact number is required")
	}
	if !in.DurationType.Valid() {
		return Validationf("unknown duration type %q", in.DurationType)
	}
	switch in.PaymentMethod {
	case PaymentMethodCard:
		d := in.PaymentDetails
		if d.CardNumber == "" || d.ExpiryDate == "" || d.CVV == "" || d.CardName == "" {
			return Validationf("card number, expiry date, cvv and card holder name are required")
		}
	case PaymentMethodMobileWalletA, PaymentMethodMobileWalletB:
		if in.PaymentDetails.PhoneNumber == "" {
			return Validationf("phone number is required for %s payments", in.PaymentMethod)
		}
	default:
		return Validationf("unknown payment method %q", in.PaymentMethod)
	}
	return nil
}

// BookingState is the in-flight lifecycle of a booking attempt. Only
// Confirmed, Cancelled and Completed are ever persisted.
type BookingState string

const (
	StateDraft          BookingState = "draft"
	StatePendingPayment BookingState = "pending_payment"
	StateConfirmed      BookingState = "confirmed"
	StateRejected       BookingState = "rejected"
	StateCancelled      BookingState = "cancelled"
	StateCompleted      BookingState = "completed"
)

var bookingTransitions = map[BookingState][]BookingState{
	StateDraft:          {StatePendingPayment, StateRejected},
	StatePendingPayment: {StateConfirmed, StateRejected},
	StateConfirmed:      {StateCancelled, StateCompleted},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to BookingState) bool {
	for _, next := range bookingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingAttempt tracks one pass through the booking lifecycle.
type BookingAttempt struct {
	State   BookingState
	Reason  string
	Booking *Booking
}

func NewBookingAttempt(b *Booking) *BookingAttempt {
	return &BookingAttempt{State: StateDraft, Booking: b}
}

func (a *BookingAttempt) Transition(to BookingState) error {
	if !CanTransition(a.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.State, to)
	}
	a.State = to
	return nil
}

// Reject moves the attempt to Rejected, recording why.
func (a *BookingAttempt) Reject(reason string) error {
	if err := a.Transition(StateRejected); err != nil {
		return err
	}
	a.Reason = reason
	return nil
}

// BookingResult is what a booking request reports back to its caller.
type BookingResult struct {
	State   BookingState `json:"state"`
	Reason  string       `json:"reason,omitempty"`
	Booking *Booking     `json:"booking,omitempty"`
	Quote   *PriceQuote  `json:"quote,omitempty"`
	Replay  bool         `json:"replay,omitempty"`
}
