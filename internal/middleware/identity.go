package middleware

// identity.go holds the helpers shared by the auth, role and rate limit
// middleware for reading the caller's identity from the Echo context.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/model"
)

const principalKey = "principal"

// SetPrincipal attaches a verified principal to the request context.
func SetPrincipal(c echo.Context, p model.Principal) { c.Set(principalKey, p) }

// PrincipalFrom returns the principal stored by JWTAuth, if any.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p.UserID != 0
}

// currentUserID returns the caller's ID as a string, or "anon".
func currentUserID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "anon"
}
