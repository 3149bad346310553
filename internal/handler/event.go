package handler

import (
	"context"  // request-scoped timeouts for storage calls
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"github.com/sirupsen/logrus"  // structured logging

	"github.com/iliyamo/event-booking/internal/model"   // event drafts
	"github.com/iliyamo/event-booking/internal/service" // catalog reads and admin writes
)

// EventHandler serves the event catalog.
type EventHandler struct {
	Svc *service.EventService
	Log logrus.FieldLogger
}

func NewEventHandler(svc *service.EventService, log logrus.FieldLogger) *EventHandler {
	return &EventHandler{Svc: svc, Log: log}
}

// List: GET /v1/events
func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	// Past events are excluded; each entry carries live availability.
	events, err := h.Svc.ListUpcoming(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Get: GET /v1/events/:id
func (h *EventHandler) Get(c echo.Context) error {
	// Parse the event ID from the path.
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	ev, err := h.Svc.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Availability: GET /v1/events/:id/availability
func (h *EventHandler) Availability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	a, err := h.Svc.Availability(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	// Flatten the projection into the response shape clients expect.
	return c.JSON(http.StatusOK, echo.Map{
		"event_id":        id,
		"capacity":        a.Capacity,
		"booked_spots":    a.Committed,
		"available_spots": a.AvailableSpots,
		"is_full":         a.IsFull,
	})
}

// Create: POST /v1/events (admin)
func (h *EventHandler) Create(c echo.Context) error {
	// Decode the draft; normalisation and validation happen in the service.
	var d model.EventDraft
	if err := c.Bind(&d); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	id, err := h.Svc.Create(c.Request().Context(), principal(c), d)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "event created", "event_id": id})
}

// Update: PUT /v1/events/:id (admin)
func (h *EventHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var d model.EventDraft
	if err := c.Bind(&d); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	// Shrinking capacity below the booked spots is rejected with 409.
	if err := h.Svc.Update(c.Request().Context(), principal(c), id, d); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "event updated"})
}

// Delete: DELETE /v1/events/:id (admin)
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	// Events with confirmed bookings cannot be deleted.
	if err := h.Svc.Delete(c.Request().Context(), principal(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "event deleted"})
}
