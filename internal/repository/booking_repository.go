package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/model"
)

// BookingRepo is the booking ledger.  Admission and cancellation each run
// in a single transaction that first takes the per-event lock, so for any
// one event they are applied one at a time.
type BookingRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB, dialect database.Dialect) *BookingRepo {
	return &BookingRepo{db: db, dialect: dialect}
}

// Admit applies the admission rules to a new booking and stores it as
// confirmed.  The checks run in this order inside one transaction:
//
//  1. the event exists and is not dated before today;
//  2. the requested quantity fits in the remaining spots;
//  3. the user holds no booking for the event, in any status.
//
// The first failing check decides the error: ErrEventNotFound, a
// *CapacityError, or ErrDuplicateBooking.  On success the stored booking,
// including its ID, is returned.
func (r *BookingRepo) Admit(ctx context.Context, userID uint64, req model.BookingRequest, today string) (model.Booking, error) {
	b := model.Booking{
		EventID:       req.EventID,
		UserID:        userID,
		AttendeeName:  req.Name,
		AttendeeEmail: req.Email,
		AttendeePhone: req.Phone,
		Quantity:      req.Spots(),
		Status:        model.BookingConfirmed,
		BookingDate:   time.Now().UTC(),
	}
	err := withTx(ctx, r.db, r.dialect, "admit booking", func(tx *sql.Tx) error {
		capacity, date, err := lockEvent(ctx, tx, r.dialect, req.EventID)
		if err != nil {
			return err
		}
		if date < today {
			return ErrEventNotFound
		}

		committed, err := committedTx(ctx, tx, req.EventID)
		if err != nil {
			return err
		}
		if avail := model.NewAvailability(capacity, committed); b.Quantity > avail.AvailableSpots {
			return &CapacityError{Available: max(avail.AvailableSpots, 0), Requested: b.Quantity}
		}

		var existing int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings WHERE event_id = ? AND user_id = ?`,
			req.EventID, userID).Scan(&existing)
		if err != nil {
			return classify("check duplicate", err, nil)
		}
		if existing > 0 {
			return ErrDuplicateBooking
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (event_id, user_id, attendee_name, attendee_email, attendee_phone, quantity, status, booking_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.EventID, b.UserID, b.AttendeeName, b.AttendeeEmail, nullStringPtr(b.AttendeePhone),
			b.Quantity, string(b.Status), b.BookingDate)
		if err != nil {
			return classify("insert booking", err, ErrDuplicateBooking)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		b.ID = uint64(id)
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// Cancel moves an owned, confirmed booking to cancelled and returns it.
// A booking that does not exist or belongs to someone else yields
// ErrBookingNotFound; one that is not confirmed yields ErrAlreadyCancelled.
func (r *BookingRepo) Cancel(ctx context.Context, bookingID, userID uint64) (model.Booking, error) {
	var b model.Booking
	err := withTx(ctx, r.db, r.dialect, "cancel booking", func(tx *sql.Tx) error {
		var eventID uint64
		err := tx.QueryRowContext(ctx,
			`SELECT event_id FROM bookings WHERE id = ? AND user_id = ?`, bookingID, userID,
		).Scan(&eventID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return classify("find booking", err, nil)
		}
		if _, _, err := lockEvent(ctx, tx, r.dialect, eventID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE bookings SET status = ? WHERE id = ? AND status = ?`,
			string(model.BookingCancelled), bookingID, string(model.BookingConfirmed))
		if err != nil {
			return classify("cancel booking", err, nil)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyCancelled
		}

		b, err = scanBooking(tx.QueryRowContext(ctx,
			`SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, bookingID))
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

const bookingColumns = `b.id, b.event_id, b.user_id, b.attendee_name, b.attendee_email, b.attendee_phone,
	b.quantity, b.status, b.booking_date`

func scanBooking(row rowScanner, extra ...any) (model.Booking, error) {
	var (
		b      model.Booking
		phone  sql.NullString
		status string
	)
	dest := append([]any{&b.ID, &b.EventID, &b.UserID, &b.AttendeeName, &b.AttendeeEmail,
		&phone, &b.Quantity, &status, &b.BookingDate}, extra...)
	if err := row.Scan(dest...); err != nil {
		return b, err
	}
	if phone.Valid {
		p := phone.String
		b.AttendeePhone = &p
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

const detailQuery = `SELECT ` + bookingColumns + `,
	e.title, e.date, e.start_time, e.end_time, e.location, COALESCE(e.description, '')
	FROM bookings b
	JOIN events e ON e.id = b.event_id`

func scanDetail(row rowScanner) (model.BookingDetail, error) {
	var d model.BookingDetail
	b, err := scanBooking(row, &d.EventTitle, &d.EventDate, &d.EventStartTime,
		&d.EventEndTime, &d.EventLocation, &d.EventDescription)
	d.Booking = b
	return d, err
}

// ListByUser returns the user's bookings with event details, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		detailQuery+` WHERE b.user_id = ? ORDER BY b.booking_date DESC, b.id DESC`, userID)
	if err != nil {
		return nil, classify("list bookings", err, nil)
	}
	defer rows.Close()

	out := make([]model.BookingDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByIDForUser returns one of the user's bookings with event details.
// Bookings owned by other users are reported as ErrBookingNotFound.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (model.BookingDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx,
		detailQuery+` WHERE b.id = ? AND b.user_id = ?`, bookingID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrBookingNotFound
	}
	if err != nil {
		return d, classify("get booking", err, nil)
	}
	return d, nil
}

// ListByEvent returns every booking of an event with its owner's account
// details, newest first.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.EventBooking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+`, u.name, u.email
		 FROM bookings b
		 JOIN users u ON u.id = b.user_id
		 WHERE b.event_id = ?
		 ORDER BY b.booking_date DESC, b.id DESC`, eventID)
	if err != nil {
		return nil, classify("list event bookings", err, nil)
	}
	defer rows.Close()

	out := make([]model.EventBooking, 0)
	for rows.Next() {
		var eb model.EventBooking
		b, err := scanBooking(rows, &eb.UserName, &eb.UserEmail)
		if err != nil {
			return nil, err
		}
		eb.Booking = b
		out = append(out, eb)
	}
	return out, rows.Err()
}
