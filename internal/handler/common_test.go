package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

func TestWriteError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"bad id", errBadID, http.StatusBadRequest, ""},
		{"validation", model.ValidationErrors{{Field: "quantity", Message: "must be between 1 and 10"}}, http.StatusBadRequest, ""},
		{"capacity", &repository.CapacityError{Available: 1, Requested: 3}, http.StatusConflict, "capacity_exceeded"},
		{"wrapped not found", fmt.Errorf("admit: %w", repository.ErrEventNotFound), http.StatusNotFound, "event_not_found"},
		{"booking not found", repository.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"duplicate", repository.ErrDuplicateBooking, http.StatusConflict, "duplicate_booking"},
		{"already cancelled", repository.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
		{"below committed", repository.ErrCapacityBelowCommitted, http.StatusConflict, "capacity_below_committed"},
		{"email", repository.ErrEmailExists, http.StatusConflict, "email_exists"},
		{"conflict", repository.ErrConflict, http.StatusConflict, "conflict"},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log, hook := logtest.NewNullLogger()
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			assert.NoError(t, writeError(c, log, tc.err))
			assert.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				assert.Contains(t, rec.Body.String(), `"code":"`+tc.code+`"`)
			}
			if tc.status == http.StatusInternalServerError {
				if assert.NotNil(t, hook.LastEntry()) {
					assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
				}
				assert.NotContains(t, rec.Body.String(), "disk on fire")
			}
		})
	}
}

func TestCapacityBody(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	_ = writeError(c, log, &repository.CapacityError{Available: 1, Requested: 3})
	assert.JSONEq(t, `{"error":"`+(&repository.CapacityError{Available: 1, Requested: 3}).Error()+`","code":"capacity_exceeded","available_spots":1,"requested":3}`, rec.Body.String())
}

func TestParseID(t *testing.T) {
	e := echo.New()
	for raw, ok := range map[string]bool{"7": true, "0": false, "-1": false, "x": false, "": false} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(raw)
		id, err := parseID(c, "id")
		if ok {
			assert.NoError(t, err, raw)
			assert.Equal(t, uint64(7), id)
		} else {
			assert.ErrorIs(t, err, errBadID, raw)
		}
	}
}
