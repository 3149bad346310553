// Package repository defines the storage layer and the error values that
// higher layers use to tell failure scenarios apart.  Handlers translate
// these sentinels into HTTP statuses; the booking service additionally
// retries once on ErrConflict.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrForbidden is returned when the caller attempts an operation its role
// does not allow.  Handlers should translate this into an HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state: a storage-level serialization failure, or deleting an
// event that still has confirmed bookings.  Handlers translate this into
// an HTTP 409.
var ErrConflict = errors.New("conflict")

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrDuplicateBooking       = errors.New("a booking for this event already exists")
	ErrAlreadyCancelled       = errors.New("booking is already cancelled")
	ErrCapacityExceeded       = errors.New("not enough spots available")
	ErrCapacityBelowCommitted = errors.New("capacity is below the number of booked spots")
	ErrEmailExists            = errors.New("email already exists")
)

// CapacityError reports a rejected admission together with the number of
// spots that were left.  It matches ErrCapacityExceeded under errors.Is.
type CapacityError struct {
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough spots available: requested %d, available %d", e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// MySQL server error numbers.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// isRetryable reports whether err is a serialization failure that a fresh
// transaction may not hit again.
func isRetryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		primary := se.Code() & 0xff
		return primary == sqlite3.SQLITE_BUSY || primary == sqlite3.SQLITE_LOCKED
	}
	return false
}

// isUniqueViolation reports whether err is a unique-key violation.
func isUniqueViolation(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// extended result codes disabled
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return false
}

// classify maps driver errors onto the package sentinels.  Anything it
// does not recognise is wrapped with op for context.
func classify(op string, err error, onUnique error) error {
	switch {
	case err == nil:
		return nil
	case isRetryable(err):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	case onUnique != nil && isUniqueViolation(err):
		return onUnique
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
