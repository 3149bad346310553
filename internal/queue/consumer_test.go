package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/model"
)

func TestHandleMessageAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")

	for _, q := range []string{BookingConfirmedQueue, BookingCancelledQueue} {
		ev := NewBookingEvent(q, model.Booking{ID: 9, EventID: 4, UserID: 2, AttendeeName: "Ada", AttendeeEmail: "ada@example.com", Quantity: 2})
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, handleMessage(body, path))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "booking.confirmed | booking_id=9 | event_id=4 | user_id=2 | quantity=2")
	assert.Contains(t, lines[1], "booking.cancelled")
}

func TestHandleMessageRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.log")
	assert.Error(t, handleMessage([]byte("{"), path))
	assert.Error(t, handleMessage([]byte(`{"type":"booking.confirmed"}`), path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewBookingEventIDsAreUnique(t *testing.T) {
	a := NewBookingEvent(BookingConfirmedQueue, model.Booking{ID: 1})
	b := NewBookingEvent(BookingConfirmedQueue, model.Booking{ID: 1})
	assert.NotEqual(t, a.MessageID, b.MessageID)
	assert.Len(t, a.MessageID, 36)
}
