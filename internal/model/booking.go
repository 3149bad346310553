package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.  A booking
// is created confirmed and may move to cancelled exactly once.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking records a principal's reservation of one or more spots for an
// event.  At most one booking exists per (event, user) pair.
//
// Fields:
//  ID            – primary key identifier.
//  EventID       – event being booked.
//  UserID        – principal that owns the booking.
//  AttendeeName  – contact name for the attendee.
//  AttendeeEmail – contact email for the attendee.
//  AttendeePhone – optional contact phone.
//  Quantity      – number of spots held by the booking.
//  Status        – confirmed or cancelled.
//  BookingDate   – creation timestamp (UTC).
type Booking struct {
	ID            uint64        `json:"id"`                       // bookings.id
	EventID       uint64        `json:"event_id"`                 // bookings.event_id
	UserID        uint64        `json:"user_id"`                  // bookings.user_id
	AttendeeName  string        `json:"attendee_name"`            // bookings.attendee_name
	AttendeeEmail string        `json:"attendee_email"`           // bookings.attendee_email
	AttendeePhone *string       `json:"attendee_phone,omitempty"` // bookings.attendee_phone (nullable)
	Quantity      int           `json:"quantity"`                 // bookings.quantity
	Status        BookingStatus `json:"status"`                   // bookings.status
	BookingDate   time.Time     `json:"booking_date"`             // bookings.booking_date
}

// BookingDetail is a booking joined with the event fields shown to its
// owner.
type BookingDetail struct {
	Booking
	EventTitle       string `json:"event_title"`
	EventDate        string `json:"event_date"`
	EventStartTime   string `json:"event_start_time"`
	EventEndTime     string `json:"event_end_time"`
	EventLocation    string `json:"event_location"`
	EventDescription string `json:"event_description,omitempty"`
}

// EventBooking is a booking joined with its owner's account details.  It
// is only returned to administrators.
type EventBooking struct {
	Booking
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}
