package handler

import (
	"context"  // request-scoped timeouts for storage calls
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/sirupsen/logrus"  // structured logging

	"github.com/iliyamo/event-booking/internal/model"   // request and response types
	"github.com/iliyamo/event-booking/internal/service" // booking admission and reads
)

// BookingHandler serves booking submission, cancellation and reads.  All
// routes run behind JWTAuth.
type BookingHandler struct {
	Svc *service.BookingService
	Log logrus.FieldLogger
}

func NewBookingHandler(svc *service.BookingService, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{Svc: svc, Log: log}
}

// Create: POST /v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
	// Decode the JSON body; attendee fields are validated by the service.
	var req model.BookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// Submit applies its own transaction timeout, so the request context is
	// passed through unchanged.
	b, err := h.Svc.Submit(c.Request().Context(), principal(c), req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "booking created",
		"booking_id": b.ID,
		"booking":    b,
	})
}

// ListMine: GET /v1/bookings
func (h *BookingHandler) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	// Only the caller's bookings are returned, newest first.
	list, err := h.Svc.ListMine(ctx, principal(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetMine: GET /v1/bookings/:id
func (h *BookingHandler) GetMine(c echo.Context) error {
	// Parse the booking ID from the path.
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	// Bookings of other users are reported as not found.
	b, err := h.Svc.GetMine(ctx, principal(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel: PUT /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c echo.Context) error {
	// Parse the booking ID from the path.
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	// Cancellation is owner-scoped and only succeeds once.
	if _, err := h.Svc.Cancel(c.Request().Context(), principal(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled"})
}

// ListForEvent: GET /v1/bookings/event/:eventId (admin)
func (h *BookingHandler) ListForEvent(c echo.Context) error {
	// Parse the event ID from the path.
	id, err := parseID(c, "eventId")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	// The service re-checks the admin role and that the event exists.
	list, err := h.Svc.ListForEvent(ctx, principal(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}
