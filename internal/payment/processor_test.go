package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspace-backend/internal/domain"
)

func TestSimulatedProcessor_Charge(t *testing.T) {
	p := NewSimulatedProcessor(0)
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }
	ctx := context.Background()

	card := domain.PaymentDetails{CardNumber: "4111 1111 1111 1111", ExpiryDate: "12/30", CVV: "123", CardName: "T. Moyo"}

	t.Run("Success", func(t *testing.T) {
		res, err := p.Charge(ctx, ChargeRequest{Reference: "r1", Amount: 9.49, Method: domain.PaymentMethodCard, Details: card})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "TXN_1700000000123", res.TransactionID)
	})

	t.Run("Declined card", func(t *testing.T) {
		declined := card
		declined.CardNumber = "4000 0000 0000 0002"
		res, err := p.Charge(ctx, ChargeRequest{Amount: 9.49, Method: domain.PaymentMethodCard, Details: declined})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "card declined", res.ErrorReason)
		assert.Empty(t, res.TransactionID)
	})

	t.Run("Declined wallet", func(t *testing.T) {
		res, err := p.Charge(ctx, ChargeRequest{Amount: 5, Method: domain.PaymentMethodMobileWalletA,
			Details: domain.PaymentDetails{PhoneNumber: "0771230000"}})
		require.NoError(t, err)
		assert.False(t, res.Success)
	})

	t.Run("Timeout", func(t *testing.T) {
		slow := NewSimulatedProcessor(time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := slow.Charge(ctx, ChargeRequest{Amount: 5, Method: domain.PaymentMethodCard, Details: card})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSimulatedProcessor_Refund(t *testing.T) {
	p := NewSimulatedProcessor(0)
	assert.NoError(t, p.Refund(context.Background(), "TXN_1", 10))
	assert.Error(t, p.Refund(context.Background(), "", 10))
}
