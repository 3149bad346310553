package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// EventStore is the subset of the event catalog used by EventService.
type EventStore interface {
	Create(ctx context.Context, createdBy uint64, d model.EventDraft) (uint64, error)
	Update(ctx context.Context, id uint64, d model.EventDraft) error
	Delete(ctx context.Context, id uint64) error
	Get(ctx context.Context, id uint64) (model.EventWithAvailability, error)
	ListUpcoming(ctx context.Context, today string) ([]model.EventWithAvailability, error)
	Availability(ctx context.Context, id uint64) (model.Availability, error)
}

// EventService exposes the catalog: public reads and admin-only writes.
type EventService struct {
	events EventStore
	log    logrus.FieldLogger
	today  func() string
}

func NewEventService(events EventStore, log logrus.FieldLogger, today func() string) *EventService {
	if today == nil {
		today = TodayIn(time.UTC)
	}
	return &EventService{events: events, log: log, today: today}
}

// ListUpcoming returns events dated today or later with availability.
func (s *EventService) ListUpcoming(ctx context.Context) ([]model.EventWithAvailability, error) {
	return s.events.ListUpcoming(ctx, s.today())
}

// Get returns one event with availability.
func (s *EventService) Get(ctx context.Context, id uint64) (model.EventWithAvailability, error) {
	return s.events.Get(ctx, id)
}

// Availability returns the live availability projection of an event.
func (s *EventService) Availability(ctx context.Context, id uint64) (model.Availability, error) {
	return s.events.Availability(ctx, id)
}

// Create validates the draft and stores a new event owned by the admin.
func (s *EventService) Create(ctx context.Context, p model.Principal, d model.EventDraft) (uint64, error) {
	if !p.IsAdmin() {
		return 0, repository.ErrForbidden
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return 0, err
	}
	id, err := s.events.Create(ctx, p.UserID, d)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"event_id": id, "capacity": d.Capacity, "admin_id": p.UserID}).Info("event created")
	return id, nil
}

// Update replaces an event's fields.  Shrinking capacity below the spots
// already booked is rejected with ErrCapacityBelowCommitted.
func (s *EventService) Update(ctx context.Context, p model.Principal, id uint64, d model.EventDraft) error {
	if !p.IsAdmin() {
		return repository.ErrForbidden
	}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return err
	}
	if err := s.events.Update(ctx, id, d); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"event_id": id, "capacity": d.Capacity, "admin_id": p.UserID}).Info("event updated")
	return nil
}

// Delete removes an event that has no confirmed bookings.
func (s *EventService) Delete(ctx context.Context, p model.Principal, id uint64) error {
	if !p.IsAdmin() {
		return repository.ErrForbidden
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"event_id": id, "admin_id": p.UserID}).Info("event deleted")
	return nil
}
