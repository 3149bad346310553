// Package queue defines the booking notifications exchanged over RabbitMQ
// and the consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-booking/internal/model"
)

// Queue names.  Each is also the routing key on the default exchange.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingEvent is published after a booking is confirmed or cancelled.
// It carries enough for downstream consumers to log or notify without
// querying the primary database.
type BookingEvent struct {
	MessageID     string `json:"message_id"`
	Type          string `json:"type"`
	BookingID     uint64 `json:"booking_id"`
	EventID       uint64 `json:"event_id"`
	UserID        uint64 `json:"user_id"`
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
	Quantity      int    `json:"quantity"`
	OccurredAt    string `json:"occurred_at"`
}

// NewBookingEvent describes b for the given queue.  OccurredAt is RFC3339
// in UTC.
func NewBookingEvent(queueName string, b model.Booking) BookingEvent {
	return BookingEvent{
		MessageID:     uuid.NewString(),
		Type:          queueName,
		BookingID:     b.ID,
		EventID:       b.EventID,
		UserID:        b.UserID,
		AttendeeName:  b.AttendeeName,
		AttendeeEmail: b.AttendeeEmail,
		Quantity:      b.Quantity,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
}
