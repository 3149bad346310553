// Package service holds the booking and catalog use cases.  It validates
// input, applies the access rules and delegates the transactional work to
// the repositories.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
)

// BookingStore is the subset of the booking ledger used by BookingService.
type BookingStore interface {
	Admit(ctx context.Context, userID uint64, req model.BookingRequest, today string) (model.Booking, error)
	Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	GetByIDForUser(ctx context.Context, bookingID, userID uint64) (model.BookingDetail, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.EventBooking, error)
}

// EventChecker reports whether an event exists.
type EventChecker interface {
	Exists(ctx context.Context, id uint64) (bool, error)
}

// BookingOptions tunes BookingService.
type BookingOptions struct {
	MaxQuantity int
	TxTimeout   time.Duration
	Today       func() string
}

type BookingService struct {
	bookings  BookingStore
	events    EventChecker
	publisher Publisher
	log       logrus.FieldLogger
	opts      BookingOptions
}

func NewBookingService(b BookingStore, e EventChecker, p Publisher, log logrus.FieldLogger, opts BookingOptions) *BookingService {
	if opts.MaxQuantity < 1 {
		opts.MaxQuantity = 10
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 10 * time.Second
	}
	if opts.Today == nil {
		opts.Today = TodayIn(time.UTC)
	}
	if p == nil {
		p = NopPublisher{}
	}
	return &BookingService{bookings: b, events: e, publisher: p, log: log, opts: opts}
}

// TodayIn returns a function reporting the current calendar date in loc.
func TodayIn(loc *time.Location) func() string {
	return func() string { return time.Now().In(loc).Format(model.DateLayout) }
}

// Submit validates a booking request and runs admission.  A storage
// conflict is retried once with a fresh transaction; a second conflict is
// returned to the caller.
func (s *BookingService) Submit(ctx context.Context, p model.Principal, req model.BookingRequest) (model.Booking, error) {
	if p.UserID == 0 {
		return model.Booking{}, repository.ErrForbidden
	}
	req.Normalize()
	if err := req.Validate(s.opts.MaxQuantity); err != nil {
		return model.Booking{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	var b model.Booking
	err := s.retryOnConflict(ctx, "admit", func() error {
		var err error
		b, err = s.bookings.Admit(ctx, p.UserID, req, s.opts.Today())
		return err
	})
	entry := s.log.WithFields(logrus.Fields{
		"event_id": req.EventID,
		"user_id":  p.UserID,
		"quantity": req.Spots(),
	})
	if err != nil {
		var ce *repository.CapacityError
		if errors.As(err, &ce) {
			entry = entry.WithField("available", ce.Available)
		}
		entry.WithError(err).Info("booking rejected")
		return model.Booking{}, err
	}
	entry.WithField("booking_id", b.ID).Info("booking confirmed")
	s.publish(ctx, queue.BookingConfirmedQueue, b)
	return b, nil
}

// Cancel cancels one of the principal's bookings.
func (s *BookingService) Cancel(ctx context.Context, p model.Principal, bookingID uint64) (model.Booking, error) {
	if p.UserID == 0 {
		return model.Booking{}, repository.ErrForbidden
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	var b model.Booking
	err := s.retryOnConflict(ctx, "cancel", func() error {
		var err error
		b, err = s.bookings.Cancel(ctx, bookingID, p.UserID)
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"event_id":   b.EventID,
		"user_id":    p.UserID,
		"quantity":   b.Quantity,
	}).Info("booking cancelled")
	s.publish(ctx, queue.BookingCancelledQueue, b)
	return b, nil
}

// ListMine returns the principal's bookings, newest first.
func (s *BookingService) ListMine(ctx context.Context, p model.Principal) ([]model.BookingDetail, error) {
	if p.UserID == 0 {
		return nil, repository.ErrForbidden
	}
	return s.bookings.ListByUser(ctx, p.UserID)
}

// GetMine returns one of the principal's bookings.
func (s *BookingService) GetMine(ctx context.Context, p model.Principal, bookingID uint64) (model.BookingDetail, error) {
	if p.UserID == 0 {
		return model.BookingDetail{}, repository.ErrForbidden
	}
	return s.bookings.GetByIDForUser(ctx, bookingID, p.UserID)
}

// ListForEvent returns every booking of an event.  Admin only.
func (s *BookingService) ListForEvent(ctx context.Context, p model.Principal, eventID uint64) ([]model.EventBooking, error) {
	if !p.IsAdmin() {
		return nil, repository.ErrForbidden
	}
	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return s.bookings.ListByEvent(ctx, eventID)
}

func (s *BookingService) retryOnConflict(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if !errors.Is(err, repository.ErrConflict) || ctx.Err() != nil {
		return err
	}
	s.log.WithError(err).WithField("op", op).Warn("storage conflict, retrying once")
	return fn()
}

func (s *BookingService) publish(ctx context.Context, queueName string, b model.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, queueName, queue.NewBookingEvent(queueName, b)); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"queue":      queueName,
			"booking_id": b.ID,
		}).Warn("publish booking notification failed")
	}
}
