package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingAttemptTransitions(t *testing.T) {
	t.Run("Happy path", func(t *testing.T) {
		a := NewBookingAttempt(&Booking{})
		assert.Equal(t, StateDraft, a.State)
		assert.NoError(t, a.Transition(StatePendingPayment))
		assert.NoError(t, a.Transition(StateConfirmed))
		assert.NoError(t, a.Transition(StateCompleted))
	})

	t.Run("Rejected from draft", func(t *testing.T) {
		a := NewBookingAttempt(&Booking{})
		assert.NoError(t, a.Reject("no spaces available"))
		assert.Equal(t, StateRejected, a.State)
		assert.Equal(t, "no spaces available", a.Reason)
	})

	t.Run("Rejected from pending payment", func(t *testing.T) {
		a := NewBookingAttempt(&Booking{})
		assert.NoError(t, a.Transition(StatePendingPayment))
		assert.NoError(t, a.Reject("card declined"))
	})

	t.Run("Illegal edges", func(t *testing.T) {
		illegal := [][2]BookingState{
			{StateDraft, StateConfirmed},
			{StateRejected, StatePendingPayment},
			{StateConfirmed, StateRejected},
			{StateCancelled, StateConfirmed},
			{StateCompleted, StateCancelled},
		}
		for _, edge := range illegal {
			a := &BookingAttempt{State: edge[0]}
			err := a.Transition(edge[1])
			assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", edge[0], edge[1])
			assert.Equal(t, edge[0], a.State)
		}
	})
}

func TestCreateBookingInputValidate(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	valid := func() CreateBookingInput {
		return CreateBookingInput{
			ParkingLotID:  1,
			StartTime:     now.Add(time.Hour),
			EndTime:       now.Add(4 * time.Hour),
			VehicleInfo:   "Toyota Corolla ABC-1234",
			ContactNumber: "+263771234567",
			DurationType:  DurationHourly,
			PaymentMethod: PaymentMethodCard,
			PaymentDetails: PaymentDetails{
				CardNumber: "4242424242424242",
				ExpiryDate: "12/28",
				CVV:        "123",
				CardName:   "T Moyo",
			},
		}
	}

	t.Run("Valid card booking", func(t *testing.T) {
		assert.NoError(t, valid().Validate(now))
	})

	t.Run("Valid wallet booking", func(t *testing.T) {
		in := valid()
		in.PaymentMethod = PaymentMethodMobileWalletA
		in.PaymentDetails = PaymentDetails{PhoneNumber: "+263771234567"}
		assert.NoError(t, in.Validate(now))
	})

	tests := []struct {
		name   string
		mutate func(*CreateBookingInput)
		target error
	}{
		{"End before start", func(in *CreateBookingInput) { in.EndTime = in.StartTime.Add(-time.Minute) }, ErrInvalidTimeRange},
		{"Start in the past", func(in *CreateBookingInput) { in.StartTime = now.Add(-time.Minute) }, ErrValidation},
		{"Missing vehicle", func(in *CreateBookingInput) { in.VehicleInfo = "" }, ErrValidation},
		{"Missing contact", func(in *CreateBookingInput) { in.ContactNumber = "" }, ErrValidation},
		{"Unknown duration", func(in *CreateBookingInput) { in.DurationType = "weekly" }, ErrValidation},
		{"Card without cvv", func(in *CreateBookingInput) { in.PaymentDetails.CVV = "" }, ErrValidation},
		{"Wallet without phone", func(in *CreateBookingInput) {
			in.PaymentMethod = PaymentMethodMobileWalletB
			in.PaymentDetails = PaymentDetails{}
		}, ErrValidation},
		{"Unknown method", func(in *CreateBookingInput) { in.PaymentMethod = "cash" }, ErrValidation},
		{"Missing lot", func(in *CreateBookingInput) { in.ParkingLotID = 0 }, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			assert.ErrorIs(t, in.Validate(now), tt.target)
		})
	}
}

func TestBookingCancellable(t *testing.T) {
	now := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	b := &Booking{Status: BookingStatusConfirmed, StartTime: now.Add(time.Hour), EndTime: now.Add(2 * time.Hour)}

	assert.True(t, b.Cancellable(now))
	assert.False(t, b.Cancellable(now.Add(time.Hour)))
	assert.False(t, b.Elapsed(now))
	assert.True(t, b.Elapsed(now.Add(2*time.Hour)))

	b.Status = BookingStatusCancelled
	assert.False(t, b.Cancellable(now))
	assert.False(t, b.Elapsed(now.Add(3*time.Hour)))
}
