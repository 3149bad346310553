package model

import (
	"math"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used for events.
const DateLayout = "2006-01-02"

var (
	clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a field-level report for malformed input.  A nil
// or empty value means the input passed.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationErrors) add(field, msg string) {
	*v = append(*v, FieldError{Field: field, Message: msg})
}

// errOrNil avoids returning a typed nil inside an error interface.
func (v ValidationErrors) errOrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// EventDraft is the input accepted when creating or updating an event.
type EventDraft struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Location    string  `json:"location"`
	Capacity    int     `json:"capacity"`
	Price       float64 `json:"price"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// Normalize trims text fields and canonicalises the schedule so that
// stored values compare lexicographically (e.g. "9:05" becomes "09:05").
func (d *EventDraft) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Date = strings.TrimSpace(d.Date)
	d.StartTime = normalizeClock(d.StartTime)
	d.EndTime = normalizeClock(d.EndTime)
	d.Location = strings.TrimSpace(d.Location)
	if d.ImageURL != nil {
		u := strings.TrimSpace(*d.ImageURL)
		if u == "" {
			d.ImageURL = nil
		} else {
			d.ImageURL = &u
		}
	}
	d.Price = math.Round(d.Price*100) / 100
}

// Validate checks the draft against the event rule set.
func (d EventDraft) Validate() error {
	var errs ValidationErrors
	if d.Title == "" {
		errs.add("title", "is required")
	}
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		errs.add("date", "must be a date in YYYY-MM-DD format")
	}
	if !clockPattern.MatchString(d.StartTime) {
		errs.add("start_time", "must be a time in HH:MM format")
	}
	if !clockPattern.MatchString(d.EndTime) {
		errs.add("end_time", "must be a time in HH:MM format")
	}
	if d.Location == "" {
		errs.add("location", "is required")
	}
	if d.Capacity < 1 {
		errs.add("capacity", "must be a positive integer")
	}
	if d.Price < 0 || math.IsNaN(d.Price) || math.IsInf(d.Price, 0) {
		errs.add("price", "must be a non-negative number")
	}
	if d.ImageURL != nil {
		u, err := url.ParseRequestURI(*d.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.add("image_url", "must be an absolute http(s) URL")
		}
	}
	return errs.errOrNil()
}

// AttendeeInfo carries the contact details recorded on a booking.
type AttendeeInfo struct {
	Name  string  `json:"attendee_name"`
	Email string  `json:"attendee_email"`
	Phone *string `json:"attendee_phone,omitempty"`
}

// BookingRequest is the input for submitting a booking.  A missing
// Quantity means the default of one spot; an explicit value must be in
// range.
type BookingRequest struct {
	EventID uint64 `json:"event_id"`
	AttendeeInfo
	Quantity *int `json:"quantity,omitempty"`
}

// Normalize trims attendee fields, lower-cases the email and applies the
// default quantity.
func (r *BookingRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Phone != nil {
		p := strings.TrimSpace(*r.Phone)
		if p == "" {
			r.Phone = nil
		} else {
			r.Phone = &p
		}
	}
	if r.Quantity == nil {
		one := 1
		r.Quantity = &one
	}
}

// Validate checks the request against the booking rule set.  maxQuantity
// is the configured per-booking maximum.
func (r BookingRequest) Validate(maxQuantity int) error {
	var errs ValidationErrors
	if r.EventID == 0 {
		errs.add("event_id", "must be a positive integer")
	}
	if r.Name == "" {
		errs.add("attendee_name", "is required")
	}
	if !IsEmail(r.Email) {
		errs.add("attendee_email", "must be a valid email address")
	}
	if r.Phone != nil && !phonePattern.MatchString(*r.Phone) {
		errs.add("attendee_phone", "must contain only digits, spaces, dashes, parentheses and an optional leading +")
	}
	if r.Quantity == nil || *r.Quantity < 1 || *r.Quantity > maxQuantity {
		errs.add("quantity", "must be between 1 and "+strconv.Itoa(maxQuantity))
	}
	return errs.errOrNil()
}

// Spots returns the number of spots requested, one when unset.
func (r BookingRequest) Spots() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

// IsEmail reports whether s is a bare email address with a dotted domain.
func IsEmail(s string) bool {
	if s == "" {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[1] == ':' && clockPattern.MatchString(s) {
		return "0" + s
	}
	return s
}
