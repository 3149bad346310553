package router

import (
	"github.com/labstack/echo/v4" // Echo router

	"github.com/iliyamo/event-booking/internal/handler"    // event handlers
	"github.com/iliyamo/event-booking/internal/middleware" // JWT and role middleware
	"github.com/iliyamo/event-booking/internal/model"      // role names
)

// RegisterEvents registers the catalog.  Reads are public; writes require
// the admin role.  Middleware is attached per route because public and
// admin routes share the /v1/events prefix.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, jwtSecret string) {
	// Middleware chain for admin-only routes: verify the token first, then the role.
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}

	// Public: list upcoming events with their availability.
	e.GET("/v1/events", h.List)
	// Public: one event with its availability.
	e.GET("/v1/events/:id", h.Get)
	// Public: the availability projection on its own.
	e.GET("/v1/events/:id/availability", h.Availability)

	// Admin: create, update and delete events.
	e.POST("/v1/events", h.Create, admin...)
	e.PUT("/v1/events/:id", h.Update, admin...)
	e.DELETE("/v1/events/:id", h.Delete, admin...)
}
