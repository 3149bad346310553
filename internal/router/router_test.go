package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/service"
)

const secret = "router-test-secret"

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db, dialect, err := database.Connect(context.Background(), database.Config{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		JWTSecret:          secret,
		AccessTTLMin:       15,
		RefreshTTLDays:     7,
		BcryptCost:         4,
		AdminEmails:        []string{"admin@example.com"},
		MaxBookingQuantity: 10,
		CORSOrigins:        []string{"*"},
	}
	log, _ := logtest.NewNullLogger()
	today := func() string { return "2030-01-10" }

	events := repository.NewEventRepo(db, dialect)
	bookings := repository.NewBookingRepo(db, dialect)
	eventSvc := service.NewEventService(events, log, today)
	bookingSvc := service.NewBookingService(bookings, events, service.NopPublisher{}, log, service.BookingOptions{
		MaxQuantity: cfg.MaxBookingQuantity,
		Today:       today,
	})

	e := echo.New()
	ApplyMiddleware(e, cfg, nil, log)
	RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log), secret)
	RegisterEvents(e, handler.NewEventHandler(eventSvc, log), secret)
	RegisterBookings(e, handler.NewBookingHandler(bookingSvc, log), secret)
	return e
}

func call(e *echo.Echo, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

type session struct {
	User struct {
		ID   uint64 `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func register(t *testing.T, e *echo.Echo, name, email string) session {
	t.Helper()
	rec := call(e, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var s session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func createEvent(t *testing.T, e *echo.Echo, adminToken string, capacity int) uint64 {
	t.Helper()
	rec := call(e, http.MethodPost, "/v1/events", adminToken, map[string]any{
		"title":      "Go meetup",
		"date":       "2030-02-01",
		"start_time": "18:00",
		"end_time":   "21:00",
		"location":   "Hall A",
		"capacity":   capacity,
		"price":      12.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return uint64(decode(t, rec)["event_id"].(float64))
}

func booking(eventID uint64, name string, qty int) map[string]any {
	return map[string]any{
		"event_id":       eventID,
		"attendee_name":  name,
		"attendee_email": name + "@example.com",
		"quantity":       qty,
	}
}

func TestAuthFlow(t *testing.T) {
	e := newServer(t)

	admin := register(t, e, "Admin", "Admin@Example.com")
	assert.Equal(t, "admin", admin.User.Role)
	alice := register(t, e, "Alice", "alice@example.com")
	assert.Equal(t, "user", alice.User.Role)

	rec := call(e, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"name": "Alice again", "email": "alice@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_exists", decode(t, rec)["code"])

	rec = call(e, http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "nope", "password": "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode(t, rec)["errors"], 3)

	rec = call(e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = call(e, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(e, http.MethodGet, "/v1/me", alice.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", decode(t, rec)["user"].(map[string]any)["name"])

	rec = call(e, http.MethodPost, "/v1/auth/check-email", "", map[string]string{"email": "alice@example.com"})
	assert.JSONEq(t, `{"exists":true,"name":"Alice"}`, rec.Body.String())

	// Rotation invalidates the old refresh token.
	rec = call(e, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": alice.Refresh.Token})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(e, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": alice.Refresh.Token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/v1/auth/logout", alice.Access.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(e, http.MethodPost, "/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventCatalogRoutes(t *testing.T) {
	e := newServer(t)
	admin := register(t, e, "Admin", "admin@example.com")
	alice := register(t, e, "Alice", "alice@example.com")

	rec := call(e, http.MethodPost, "/v1/events", "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = call(e, http.MethodPost, "/v1/events", alice.Access.Token, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(e, http.MethodPost, "/v1/events", admin.Access.Token, map[string]any{"title": "x", "capacity": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", decode(t, rec)["error"])

	id := createEvent(t, e, admin.Access.Token, 3)

	rec = call(e, http.MethodGet, "/v1/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.EqualValues(t, 3, list[0]["available_spots"])

	rec = call(e, http.MethodGet, fmt.Sprintf("/v1/events/%d", id), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(e, http.MethodGet, "/v1/events/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "event_not_found", decode(t, rec)["code"])
	rec = call(e, http.MethodGet, "/v1/events/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPut, fmt.Sprintf("/v1/events/%d", id), admin.Access.Token, map[string]any{
		"title": "Go meetup (moved)", "date": "2030-02-02", "start_time": "9:30", "end_time": "12:00",
		"location": "Hall B", "capacity": 5, "price": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(e, http.MethodGet, fmt.Sprintf("/v1/events/%d", id), "", nil)
	ev := decode(t, rec)
	assert.Equal(t, "09:30", ev["start_time"])
	assert.EqualValues(t, 5, ev["capacity"])

	rec = call(e, http.MethodDelete, fmt.Sprintf("/v1/events/%d", id), admin.Access.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(e, http.MethodGet, fmt.Sprintf("/v1/events/%d", id), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBookingRoutes(t *testing.T) {
	e := newServer(t)
	admin := register(t, e, "Admin", "admin@example.com")
	alice := register(t, e, "Alice", "alice@example.com")
	bob := register(t, e, "Bob", "bob@example.com")
	id := createEvent(t, e, admin.Access.Token, 2)

	rec := call(e, http.MethodPost, "/v1/bookings", "", booking(id, "alice", 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, http.MethodPost, "/v1/bookings", alice.Access.Token, booking(id, "alice", 50))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode(t, rec)["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "quantity", errs[0].(map[string]any)["field"])

	rec = call(e, http.MethodPost, "/v1/bookings", alice.Access.Token, booking(id, "alice", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bookingID := uint64(decode(t, rec)["booking_id"].(float64))

	rec = call(e, http.MethodPost, "/v1/bookings", bob.Access.Token, booking(id, "bob", 0))
	require.Equal(t, http.StatusBadRequest, rec.Code, "an explicit zero is not the default of one")
	assert.Equal(t, "quantity", decode(t, rec)["errors"].([]any)[0].(map[string]any)["field"])

	rec = call(e, http.MethodPost, "/v1/bookings", alice.Access.Token, booking(id, "alice", 1))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "capacity_exceeded", decode(t, rec)["code"], "capacity is checked before duplicates")

	rec = call(e, http.MethodPost, "/v1/bookings", bob.Access.Token, booking(id, "bob", 1))
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "capacity_exceeded", body["code"])
	assert.EqualValues(t, 0, body["available_spots"])
	assert.EqualValues(t, 1, body["requested"])

	rec = call(e, http.MethodPost, "/v1/bookings", bob.Access.Token, booking(999, "bob", 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(e, http.MethodGet, fmt.Sprintf("/v1/events/%d/availability", id), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"event_id":%d,"capacity":2,"booked_spots":2,"available_spots":0,"is_full":true}`, id), rec.Body.String())

	rec = call(e, http.MethodGet, "/v1/bookings", alice.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Go meetup", mine[0]["event_title"])

	rec = call(e, http.MethodGet, fmt.Sprintf("/v1/bookings/%d", bookingID), bob.Access.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "other users' bookings are invisible")

	rec = call(e, http.MethodGet, fmt.Sprintf("/v1/bookings/event/%d", id), alice.Access.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = call(e, http.MethodGet, fmt.Sprintf("/v1/bookings/event/%d", id), admin.Access.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var roster []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roster))
	require.Len(t, roster, 1)
	assert.Equal(t, "alice@example.com", roster[0]["user_email"])

	rec = call(e, http.MethodPut, fmt.Sprintf("/v1/bookings/%d/cancel", bookingID), bob.Access.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = call(e, http.MethodPut, fmt.Sprintf("/v1/bookings/%d/cancel", bookingID), alice.Access.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(e, http.MethodPut, fmt.Sprintf("/v1/bookings/%d/cancel", bookingID), alice.Access.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_cancelled", decode(t, rec)["code"])

	// Freed spots go to the next caller.
	rec = call(e, http.MethodPost, "/v1/bookings", bob.Access.Token, booking(id, "bob", 2))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
