package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"                        // request ID generator
	"github.com/labstack/echo/v4"                   // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // Echo's bundled middleware (recover, CORS, ...)
	"github.com/redis/go-redis/v9"                  // Redis client backing the rate limiter
	"github.com/sirupsen/logrus"                    // structured logger shared with the handlers

	"github.com/iliyamo/event-booking/internal/config"     // application configuration
	"github.com/iliyamo/event-booking/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/event-booking/internal/middleware" // import middleware for JWT authentication, roles and rate limiting
)

// ApplyMiddleware installs the global middleware chain: panic recovery,
// request IDs, request logging, security headers, CORS, a body size limit
// and the Redis rate limiter (a no-op when rdb is nil).
func ApplyMiddleware(e *echo.Echo, cfg config.Config, rdb *redis.Client, log logrus.FieldLogger) {
	// Turn panics inside handlers into 500 responses instead of crashing.
	e.Use(echomw.Recover())
	// Tag every request with an X-Request-ID so log lines can be correlated.
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	// Log one structured line per request once the response is written.
	e.Use(middleware.RequestLogger(log))
	// Send the usual security headers (X-Frame-Options, nosniff, ...).
	e.Use(echomw.Secure())
	// Allow browsers from the configured origins to call the API.
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	// Reject request bodies larger than 10 MB.
	e.Use(echomw.BodyLimit("10M"))
	// Apply the token bucket last.  It resolves the caller from the bearer
	// token on its own because JWTAuth only runs at route level.
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, cfg.JWTSecret, log))
}

// RegisterAuth registers the authentication routes.  Unauthenticated
// operations live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Exchange a refresh token for a new pair.  The old refresh token is consumed.
	g.POST("/refresh", a.Refresh)
	// Issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Log out with either a refresh token in the body or a bearer token.
	g.POST("/logout", a.Logout)
	// Report whether an email address is already registered.
	g.POST("/check-email", a.CheckEmail)

	// The profile endpoint needs a valid access token.
	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}
