package router

import (
	"github.com/labstack/echo/v4" // Echo router

	"github.com/iliyamo/event-booking/internal/handler"    // booking handlers
	"github.com/iliyamo/event-booking/internal/middleware" // JWT and role middleware
	"github.com/iliyamo/event-booking/internal/model"      // role names
)

// RegisterBookings registers booking routes under /v1/bookings.  Every
// route requires a valid JWT; listing an event's bookings also requires
// the admin role.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	// All booking routes run JWTAuth so handlers always see a principal.
	g := e.Group("/v1/bookings", middleware.JWTAuth(jwtSecret))

	// Submit a booking for the caller.
	g.POST("", h.Create)
	// List the caller's own bookings, newest first.
	g.GET("", h.ListMine)
	// Fetch one of the caller's bookings; others' bookings read as 404.
	g.GET("/:id", h.GetMine)
	// Cancel one of the caller's bookings, freeing its spots.
	g.PUT("/:id/cancel", h.Cancel)
	// Admin: every booking of an event with the owners' name and email.
	g.GET("/event/:eventId", h.ListForEvent, middleware.RequireRole(model.RoleAdmin))
}
