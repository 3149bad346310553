package model

import "time"

// Event represents a bookable event created by an administrator.  The
// schedule fields are wall-clock strings: Date is YYYY-MM-DD and the
// times are HH:MM (24h).  Storing them as text keeps calendar-date
// comparisons independent of the database time zone.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – short event title.
//  Description – optional free text.
//  Date        – calendar day of the event.
//  StartTime   – wall-clock start time.
//  EndTime     – wall-clock end time.
//  Location    – venue description.
//  Capacity    – total number of spots (always positive).
//  Price       – price per spot (never negative).
//  ImageURL    – optional image link.
//  CreatedBy   – admin user that created the event.
//  CreatedAt   – creation timestamp.
type Event struct {
	ID          uint64    `json:"id"`                  // events.id
	Title       string    `json:"title"`               // events.title
	Description string    `json:"description"`         // events.description
	Date        string    `json:"date"`                // events.date
	StartTime   string    `json:"start_time"`          // events.start_time
	EndTime     string    `json:"end_time"`            // events.end_time
	Location    string    `json:"location"`            // events.location
	Capacity    int       `json:"capacity"`            // events.capacity
	Price       float64   `json:"price"`               // events.price
	ImageURL    *string   `json:"image_url,omitempty"` // events.image_url (nullable)
	CreatedBy   uint64    `json:"created_by"`          // events.created_by
	CreatedAt   time.Time `json:"created_at"`          // events.created_at
}

// Availability is the derived occupancy of an event.  It is never
// stored; it is recomputed from the bookings table on every read.
type Availability struct {
	Capacity       int  `json:"capacity"`
	Committed      int  `json:"committed"`
	AvailableSpots int  `json:"available_spots"`
	IsFull         bool `json:"is_full"`
}

// NewAvailability builds an Availability from a capacity and the summed
// quantity of confirmed bookings.
func NewAvailability(capacity, committed int) Availability {
	available := capacity - committed
	return Availability{
		Capacity:       capacity,
		Committed:      committed,
		AvailableSpots: available,
		IsFull:         available <= 0,
	}
}

// EventWithAvailability is the read model returned by listing and
// single-event endpoints.
type EventWithAvailability struct {
	Event
	AvailableSpots int  `json:"available_spots"`
	IsFull         bool `json:"is_full"`
}

// WithAvailability annotates an event with its current availability.
func (e Event) WithAvailability(a Availability) EventWithAvailability {
	return EventWithAvailability{Event: e, AvailableSpots: a.AvailableSpots, IsFull: a.IsFull}
}
