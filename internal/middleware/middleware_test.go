package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	p, ok := PrincipalFrom(c)
	if !ok {
		return c.NoContent(http.StatusTeapot)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": p.UserID, "role": p.Role})
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.10:5555"
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, uid uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, uid, role, 5)
	require.NoError(t, err)
	return at.Token
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "garbage").Code)

	rec := serve(e, http.MethodGet, "/me", token(t, 3, model.RoleUser))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":3,"role":"user"}`, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin", token(t, 3, model.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/admin", token(t, 1, model.RoleAdmin)).Code)
}

func TestTokenBucket(t *testing.T) {
	fixed := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	clock = func() time.Time { return fixed }
	t.Cleanup(func() { clock = time.Now })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	key := "rl:ip:192.0.2.10"
	args := []interface{}{fixed.UnixMilli(), 2, 1, int64(1000), int64(60)}

	db, rmock := redismock.NewClientMock()
	logger, _ := logtest.NewNullLogger()
	e := echo.New()
	e.GET("/events", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(cfg, db, secret, logger))

	rmock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).
		SetVal([]interface{}{int64(1), int64(1), int64(0)})
	rec := serve(e, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rmock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).
		SetVal([]interface{}{int64(0), int64(0), int64(1500)})
	rec = serve(e, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rmock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).
		SetErr(errors.New("connection refused"))
	rec = serve(e, http.MethodGet, "/events", "")
	assert.Equal(t, http.StatusOK, rec.Code, "fails open")

	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestTokenBucketKeysByUserAheadOfJWTAuth(t *testing.T) {
	fixed := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	clock = func() time.Time { return fixed }
	t.Cleanup(func() { clock = time.Now })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       5,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "user",
		Prefix:         "rl",
	}
	args := []interface{}{fixed.UnixMilli(), 5, 1, int64(1000), int64(60)}
	allowed := []interface{}{int64(1), int64(4), int64(0)}

	db, rmock := redismock.NewClientMock()
	logger, _ := logtest.NewNullLogger()
	e := echo.New()
	// Installed globally; JWTAuth only runs at route level.
	e.Use(NewTokenBucket(cfg, db, secret, logger))
	e.GET("/me", whoami, JWTAuth(secret))

	rmock.ExpectEvalSha(limiterScript.Hash(), []string{"rl:user:1"}, args...).SetVal(allowed)
	rmock.ExpectEvalSha(limiterScript.Hash(), []string{"rl:user:2"}, args...).SetVal(allowed)
	rmock.ExpectEvalSha(limiterScript.Hash(), []string{"rl:user:anon"}, args...).SetVal(allowed)
	rmock.ExpectEvalSha(limiterScript.Hash(), []string{"rl:user:anon"}, args...).SetVal(allowed)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/me", token(t, 1, model.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/me", token(t, 2, model.RoleUser)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)

	forged, err := utils.NewAccessToken("other-secret", 3, model.RoleAdmin, 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", forged.Token).Code)

	assert.NoError(t, rmock.ExpectationsWereMet())
}

func TestTokenBucketDisabled(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	e := echo.New()
	e.GET("/events", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, secret, logger))
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/events", "").Code)
}

func TestRequestLogger(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	e := echo.New()
	e.Use(RequestLogger(logger))
	e.GET("/me", whoami, JWTAuth(secret))

	serve(e, http.MethodGet, "/me", token(t, 9, model.RoleUser))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, "9", entry.Data["user_id"])

	serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, hook.LastEntry().Data["status"])
}
