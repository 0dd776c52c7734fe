// Package events publishes booking lifecycle changes for downstream consumers.
package events

import (
	"context"
	"time"

	"gotour/pkg/kafka"
	"gotour/pkg/model"
)

type EventType string

const (
	BookingCreated        EventType = "booking.created"
	BookingStatusChanged  EventType = "booking.status_changed"
	BookingPaymentChanged EventType = "booking.payment_changed"
	BookingCancelled      EventType = "booking.cancelled"
	BookingDeleted        EventType = "booking.deleted"
)

const (
	Source        = "bookings"
	SchemaVersion = "1"
)

// BookingEvent is the payload written for every booking event.
type BookingEvent struct {
	Type             EventType         `json:"type"`
	BookingID        string            `json:"booking_id"`
	Kind             model.BookingKind `json:"booking_type"`
	UserID           string            `json:"user_id"`
	Status           string            `json:"status"`
	PaymentStatus    string            `json:"payment_status"`
	BookingReference string            `json:"booking_reference,omitempty"`
	TotalPrice       float64           `json:"total_price"`
	Currency         string            `json:"currency"`
	OccurredAt       time.Time         `json:"occurred_at"`
}

// Publisher announces booking changes. Implementations must not fail the
// caller's operation; errors are returned for logging only.
type Publisher interface {
	Publish(ctx context.Context, eventType EventType, b *model.Booking) error
	Close() error
}

type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer MessagePublisher
	now      func() time.Time
}

func NewKafkaPublisher(producer MessagePublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, now: time.Now}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType EventType, b *model.Booking) error {
	now := p.now().UTC()
	msg, err := kafka.NewMessageAt(now).
		WithKey(b.ID).
		WithEventType(string(eventType)).
		WithSource(Source).
		WithSchemaVersion(SchemaVersion).
		WithCorrelationID(RequestIDFromContext(ctx)).
		WithValue(NewBookingEvent(eventType, b, now)).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func NewBookingEvent(eventType EventType, b *model.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:             eventType,
		BookingID:        b.ID,
		Kind:             b.Kind,
		UserID:           b.UserID,
		Status:           b.Status,
		PaymentStatus:    b.PaymentStatus,
		BookingReference: b.BookingReference,
		TotalPrice:       b.TotalPrice,
		Currency:         b.Currency,
		OccurredAt:       at,
	}
}

// Nop discards events. Used when Kafka is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, EventType, *model.Booking) error { return nil }
func (Nop) Close() error                                            { return nil }

type requestIDKey struct{}

// WithRequestID stores the request id used as the event correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
