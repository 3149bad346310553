package handler

import (
	"context"  // deadline errors
	"errors"   // errors.Is / errors.As for the error mapping
	"net/http" // HTTP status codes
	"strconv"  // path parameter parsing
	"time"     // request timeouts

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/sirupsen/logrus"  // structured logging

	"github.com/iliyamo/event-booking/internal/middleware" // principal lookup
	"github.com/iliyamo/event-booking/internal/model"      // validation errors
	"github.com/iliyamo/event-booking/internal/repository" // sentinel errors
)

// requestTimeout bounds the storage work behind a single read request.
const requestTimeout = 5 * time.Second

// errBadID is reported for path parameters that are not positive integers.
var errBadID = errors.New("invalid id")

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return id, nil
}

// principal returns the caller stored by JWTAuth.  Routes using it are
// always mounted behind JWTAuth, so a missing principal is treated as an
// anonymous caller and rejected downstream.
func principal(c echo.Context) model.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// writeError maps a core error onto an HTTP response.  Unrecognised errors
// are logged and answered with a generic 500.
func writeError(c echo.Context, log logrus.FieldLogger, err error) error {
	var (
		verrs  model.ValidationErrors
		capErr *repository.CapacityError
	)
	// Order matters: typed errors first, then sentinels, then the fallbacks.
	switch {
	case errors.Is(err, errBadID):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	case errors.As(err, &verrs):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "errors": verrs})
	case errors.As(err, &capErr):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":           capErr.Error(),
			"code":            "capacity_exceeded",
			"available_spots": capErr.Available,
			"requested":       capErr.Requested,
		})
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found", "code": "event_not_found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found", "code": "booking_not_found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
	case errors.Is(err, repository.ErrDuplicateBooking):
		return conflict(c, err, "duplicate_booking")
	case errors.Is(err, repository.ErrAlreadyCancelled):
		return conflict(c, err, "already_cancelled")
	case errors.Is(err, repository.ErrCapacityBelowCommitted):
		return conflict(c, err, "capacity_below_committed")
	case errors.Is(err, repository.ErrEmailExists):
		return conflict(c, err, "email_exists")
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "the request conflicted with a concurrent change, please retry", "code": "conflict"})
	case errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).WithField("path", c.Path()).Warn("request timed out")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "timed out", "code": "timeout"})
	default:
		log.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func conflict(c echo.Context, err error, code string) error {
	return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "code": code})
}
