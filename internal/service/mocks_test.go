package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/events"
	"parkspace-backend/internal/payment"
)

// MockProcessor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payment.ChargeResult), args.Error(1)
}
func (m *MockProcessor) Refund(ctx context.Context, transactionID string, amount float64) error {
	args := m.Called(ctx, transactionID, amount)
	return args.Error(0)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendBookingConfirmation(ctx context.Context, email string, lotName string, b *domain.Booking, currency string) error {
	args := m.Called(ctx, email, lotName, b, currency)
	return args.Error(0)
}
func (m *MockEmailService) SendBookingCancellation(ctx context.Context, email string, lotName string, b *domain.Booking, currency string) error {
	args := m.Called(ctx, email, lotName, b, currency)
	return args.Error(0)
}

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []string{}
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// testClock is a settable time source shared by the store and the service.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
