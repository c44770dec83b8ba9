package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
)

const (
	BookingConfirmed = "booking.confirmed"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"
)

// BookingEvent is published after a booking changes state. It carries enough
// for downstream consumers to notify or report without reading the database.
type BookingEvent struct {
	Type          string    `json:"type"`
	BookingID     int64     `json:"booking_id"`
	UserID        int64     `json:"user_id"`
	ParkingLotID  int64     `json:"parking_lot_id"`
	LotName       string    `json:"lot_name,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalCost     float64   `json:"total_cost"`
	Currency      string    `json:"currency"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewBookingEvent snapshots b for the given event type.
func NewBookingEvent(eventType string, b *domain.Booking, lotName, currency string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		UserID:        b.UserID,
		ParkingLotID:  b.ParkingLotID,
		LotName:       lotName,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		TotalCost:     b.TotalCost,
		Currency:      currency,
		TransactionID: b.TransactionID,
		Reason:        b.CancellationReason,
		OccurredAt:    at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event BookingEvent) error
	Close() error
}

// amqpPublisher publishes to a durable topic exchange, routing by event
// type. The connection is dialed lazily and redialed after the broker drops it.
type amqpPublisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewAMQPPublisher(url, exchange string) Publisher {
	return &amqpPublisher{url: url, exchange: exchange}
}

func (p *amqpPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(
		p.exchange, // name
		"topic",    // kind
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return ch, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, event BookingEvent) error {
	logger.ExternalServiceCall("RabbitMQ", "Publish", "type", event.Type, "booking_id", event.BookingID)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		logger.ExternalServiceResult("RabbitMQ", "Publish", err, "type", event.Type)
		return err
	}
	defer func() { _ = ch.Close() }()

	err = ch.PublishWithContext(ctx,
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	logger.ExternalServiceResult("RabbitMQ", "Publish", err, "type", event.Type, "booking_id", event.BookingID)
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}

type nopPublisher struct{}

// NewNopPublisher returns a publisher that drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, BookingEvent) error { return nil }

func (nopPublisher) Close() error { return nil }
