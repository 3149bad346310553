package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/model"
)

// EventRepo stores events and projects their availability.  Availability
// is always computed from the bookings table at read time.
type EventRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sql.DB, dialect database.Dialect) *EventRepo {
	return &EventRepo{db: db, dialect: dialect}
}

// eventColumns lists the columns scanned by scanEvent, followed by the
// confirmed-quantity sum.
const eventColumns = `e.id, e.title, COALESCE(e.description, ''), e.date, e.start_time, e.end_time,
	e.location, e.capacity, e.price, e.image_url, e.created_by, e.created_at,
	COALESCE((SELECT SUM(b.quantity) FROM bookings b WHERE b.event_id = e.id AND b.status = 'confirmed'), 0)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.EventWithAvailability, error) {
	var (
		e         model.Event
		imageURL  sql.NullString
		committed int
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.StartTime, &e.EndTime,
		&e.Location, &e.Capacity, &e.Price, &imageURL, &e.CreatedBy, &e.CreatedAt, &committed)
	if err != nil {
		return model.EventWithAvailability{}, err
	}
	if imageURL.Valid {
		u := imageURL.String
		e.ImageURL = &u
	}
	return e.WithAvailability(model.NewAvailability(e.Capacity, committed)), nil
}

// Create inserts a new event and returns its ID.  The draft must already
// be normalised and validated.
func (r *EventRepo) Create(ctx context.Context, createdBy uint64, d model.EventDraft) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (title, description, date, start_time, end_time, location, capacity, price, image_url, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Title, nullString(d.Description), d.Date, d.StartTime, d.EndTime, d.Location,
		d.Capacity, d.Price, nullStringPtr(d.ImageURL), createdBy, time.Now().UTC())
	if err != nil {
		return 0, classify("insert event", err, nil)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update replaces the mutable fields of an event.  It holds the event
// lock while comparing the new capacity with the confirmed quantity, so
// a concurrent admission cannot slip in between the check and the write.
func (r *EventRepo) Update(ctx context.Context, id uint64, d model.EventDraft) error {
	return withTx(ctx, r.db, r.dialect, "update event", func(tx *sql.Tx) error {
		if _, _, err := lockEvent(ctx, tx, r.dialect, id); err != nil {
			return err
		}
		committed, err := committedTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if d.Capacity < committed {
			return ErrCapacityBelowCommitted
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE events SET title = ?, description = ?, date = ?, start_time = ?, end_time = ?,
			        location = ?, capacity = ?, price = ?, image_url = ?
			 WHERE id = ?`,
			d.Title, nullString(d.Description), d.Date, d.StartTime, d.EndTime,
			d.Location, d.Capacity, d.Price, nullStringPtr(d.ImageURL), id)
		return classify("update event", err, nil)
	})
}

// Delete removes an event together with its cancelled bookings.  If any
// confirmed booking remains, nothing is deleted and ErrConflict is
// returned.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	return withTx(ctx, r.db, r.dialect, "delete event", func(tx *sql.Tx) error {
		if _, _, err := lockEvent(ctx, tx, r.dialect, id); err != nil {
			return err
		}
		committed, err := committedTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if committed > 0 {
			return ErrConflict
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE event_id = ?`, id); err != nil {
			return classify("delete bookings", err, nil)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
			return classify("delete event", err, nil)
		}
		return nil
	})
}

// Get returns one event with its current availability.  Past events are
// still returned.
func (r *EventRepo) Get(ctx context.Context, id uint64) (model.EventWithAvailability, error) {
	ev, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ev, ErrEventNotFound
	}
	if err != nil {
		return ev, classify("get event", err, nil)
	}
	return ev, nil
}

// ListUpcoming returns events dated today or later, ordered by date, start
// time and id.  today is a YYYY-MM-DD string in the service time zone.
func (r *EventRepo) ListUpcoming(ctx context.Context, today string) ([]model.EventWithAvailability, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events e
		 WHERE e.date >= ?
		 ORDER BY e.date, e.start_time, e.id`, today)
	if err != nil {
		return nil, classify("list events", err, nil)
	}
	defer rows.Close()

	events := make([]model.EventWithAvailability, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Availability computes the availability projection for one event.
func (r *EventRepo) Availability(ctx context.Context, id uint64) (model.Availability, error) {
	var capacity int
	err := r.db.QueryRowContext(ctx, `SELECT capacity FROM events WHERE id = ?`, id).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Availability{}, ErrEventNotFound
	}
	if err != nil {
		return model.Availability{}, classify("get capacity", err, nil)
	}
	committed, err := committedTx(ctx, r.db, id)
	if err != nil {
		return model.Availability{}, err
	}
	return model.NewAvailability(capacity, committed), nil
}

// Exists reports whether an event with the given id is stored.
func (r *EventRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify("event exists", err, nil)
	}
	return true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
