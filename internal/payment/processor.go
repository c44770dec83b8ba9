package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
)

// ChargeRequest is one payment attempt for a booking.
type ChargeRequest struct {
	Reference string
	Amount    float64
	Currency  string
	Method    domain.PaymentMethod
	Details   domain.PaymentDetails
}

// ChargeResult reports a completed gateway exchange. A declined charge is
// Success=false with a reason; transport failures are returned as errors.
type ChargeResult struct {
	Success       bool
	TransactionID string
	ErrorReason   string
}

type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, transactionID string, amount float64) error
}

// Test numbers the simulated gateway declines.
const (
	DeclinedCardSuffix   = "0002"
	DeclinedWalletSuffix = "0000"
)

// SimulatedProcessor approves every well-formed charge after a fixed delay,
// except for the declined test numbers.
type SimulatedProcessor struct {
	latency time.Duration
	now     func() time.Time
}

func NewSimulatedProcessor(latency time.Duration) *SimulatedProcessor {
	return &SimulatedProcessor{latency: latency, now: time.Now}
}

func (p *SimulatedProcessor) wait(ctx context.Context) error {
	if p.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *SimulatedProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	logger.ExternalServiceCall("PaymentGateway", "Charge", "reference", req.Reference, "method", req.Method, "amount", req.Amount)

	if err := p.wait(ctx); err != nil {
		logger.ExternalServiceResult("PaymentGateway", "Charge", err, "reference", req.Reference)
		return ChargeResult{}, fmt.Errorf("payment gateway: %w", err)
	}

	if reason := declineReason(req); reason != "" {
		logger.ExternalServiceResult("PaymentGateway", "Charge", nil, "reference", req.Reference, "declined", reason)
		return ChargeResult{Success: false, ErrorReason: reason}, nil
	}

	txID := fmt.Sprintf("TXN_%d", p.now().UnixMilli())
	logger.ExternalServiceResult("PaymentGateway", "Charge", nil, "reference", req.Reference, "transaction_id", txID)
	return ChargeResult{Success: true, TransactionID: txID}, nil
}

func declineReason(req ChargeRequest) string {
	if req.Amount <= 0 {
		return "invalid amount"
	}
	switch req.Method {
	case domain.PaymentMethodCard:
		if strings.HasSuffix(strings.ReplaceAll(req.Details.CardNumber, " ", ""), DeclinedCardSuffix) {
			return "card declined"
		}
	case domain.PaymentMethodMobileWalletA, domain.PaymentMethodMobileWalletB:
		if strings.HasSuffix(req.Details.PhoneNumber, DeclinedWalletSuffix) {
			return "insufficient wallet balance"
		}
	default:
		return fmt.Sprintf("unsupported payment method %q", req.Method)
	}
	return ""
}

func (p *SimulatedProcessor) Refund(ctx context.Context, transactionID string, amount float64) error {
	logger.ExternalServiceCall("PaymentGateway", "Refund", "transaction_id", transactionID, "amount", amount)
	if transactionID == "" {
		err := fmt.Errorf("payment gateway: refund without transaction id")
		logger.ExternalServiceResult("PaymentGateway", "Refund", err)
		return err
	}
	err := p.wait(ctx)
	logger.ExternalServiceResult("PaymentGateway", "Refund", err, "transaction_id", transactionID)
	return err
}
