package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/model"
)

// withTx runs fn inside a transaction configured for the dialect.  The
// transaction is committed when fn returns nil and rolled back otherwise.
// Driver errors from begin and commit are classified so that lock
// timeouts and deadlocks surface as ErrConflict.
func withTx(ctx context.Context, db *sql.DB, dialect database.Dialect, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, dialect.TxOptions())
	if err != nil {
		return classify(op+": begin", err, nil)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(op+": commit", err, nil)
	}
	return nil
}

// lockEvent takes the per-event lock and returns the event's capacity and
// date.  On SQLite the surrounding transaction already holds the write
// lock, so this is a plain read.
func lockEvent(ctx context.Context, tx *sql.Tx, dialect database.Dialect, eventID uint64) (capacity int, date string, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT capacity, date FROM events WHERE id = ?"+dialect.ForUpdate(), eventID,
	).Scan(&capacity, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrEventNotFound
	}
	if err != nil {
		return 0, "", classify("lock event", err, nil)
	}
	return capacity, date, nil
}

// committedTx sums the quantity of confirmed bookings for an event.
func committedTx(ctx context.Context, q queryer, eventID uint64) (int, error) {
	var committed int
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(quantity), 0) FROM bookings WHERE event_id = ? AND status = ?",
		eventID, string(model.BookingConfirmed),
	).Scan(&committed)
	if err != nil {
		return 0, classify("sum committed", err, nil)
	}
	return committed, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
