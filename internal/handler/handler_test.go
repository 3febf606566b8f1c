package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/festival-booking/internal/auth"
	"github.com/Shivanand-hulikatti/festival-booking/internal/config"
	"github.com/Shivanand-hulikatti/festival-booking/internal/memstore"
	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

type testEnv struct {
	router http.Handler
	store  *memstore.Store
	tokens *auth.TokenManager
}

// newTestEnv serves the API over a memory store with two days: day "1" holds
// a single slot and day "2" holds six.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memstore.New(memstore.WithLockTimeout(time.Second))

	require.NoError(t, st.SaveFestival(ctx, &model.Festival{
		ID:             "fest",
		Name:           "Food & Friends Festival",
		StartDate:      time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 11, 7, 0, 0, 0, 0, time.UTC),
		Price:          50,
		CapacityPerDay: 6,
	}))
	for i, c := range []int{1, 6} {
		require.NoError(t, st.CreateDay(ctx, &model.Day{
			ID:         fmt.Sprint(i + 1),
			FestivalID: "fest",
			Date:       time.Date(2024, 11, 3+i, 0, 0, 0, 0, time.UTC),
			Theme:      fmt.Sprintf("Day %d", i+1),
			Capacity:   c,
		}))
	}
	for _, u := range []model.User{
		{ID: "ann", Email: "ann@example.com", Name: "Ann"},
		{ID: "bo", Email: "bo@example.com", Name: "Bo"},
		{ID: "root", Email: "root@example.com", Name: "Root", IsAdmin: true},
	} {
		u := u
		require.NoError(t, st.CreateUser(ctx, &u))
	}

	tokens := auth.NewTokenManager("handler-test-secret", time.Hour, nil)
	opts := service.Options{LockRetries: 2, RetryBackoff: time.Millisecond}
	bookings := service.NewBookingService(st, st, log, opts)
	registry := service.NewRegistryService(st, log, opts)

	router := NewRouter(Services{
		Auth:     auth.NewService(st, tokens, nil, log),
		Bookings: bookings,
		Registry: registry,
		Admin:    service.NewAdminService(bookings, registry, st, st, log),
	}, config.HTTP{AllowedOrigins: []string{"http://localhost:3000"}, RequestTimeout: 5 * time.Second}, log)

	return &testEnv{router: router, store: st, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	u, err := e.store.GetByID(context.Background(), userID)
	require.NoError(t, err)
	raw, _, err := e.tokens.Issue(u)
	require.NoError(t, err)
	return raw
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestFestivalRoutes(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/festival/info", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	f := decode[model.Festival](t, rec)
	assert.Equal(t, "fest", f.ID)

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", env.token(t, "ann"), map[string]string{"day_id": "2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/festival/days", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	days := decode[[]dayResponse](t, rec)
	require.Len(t, days, 2)
	assert.Equal(t, "1", days[0].ID)
	assert.Equal(t, 1, days[0].Available)
	assert.Equal(t, 1, days[1].ActiveCount)
	assert.Equal(t, 5, days[1].Available)
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	ann, bo := env.token(t, "ann"), env.token(t, "bo")

	rec := env.do(t, http.MethodGet, "/api/v1/bookings/my-booking", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", ann, map[string]string{"day_id": "1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Booking](t, rec)
	assert.Equal(t, "1", created.DayID)
	assert.Equal(t, 50.0, created.Price)

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", bo, map[string]string{"day_id": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code, "day 1 is full")
	assert.False(t, decode[model.ErrorResponse](t, rec).Confirmable)

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", ann, map[string]string{"day_id": "2"})
	assert.Equal(t, http.StatusConflict, rec.Code, "one booking per user")

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", bo, map[string]string{"day_id": "42"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/bookings/my-booking", ann, map[string]string{"day_id": "2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	moved := decode[model.Booking](t, rec)
	assert.Equal(t, created.ID, moved.ID)
	assert.Equal(t, "2", moved.DayID)

	rec = env.do(t, http.MethodPost, "/api/v1/bookings", bo, map[string]string{"day_id": "1"})
	assert.Equal(t, http.StatusCreated, rec.Code, "the move freed day 1")

	rec = env.do(t, http.MethodDelete, "/api/v1/bookings/my-booking", ann, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/bookings/my-booking", ann, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/v1/bookings/my-booking", ann, map[string]string{"day_id": "1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBookingValidation(t *testing.T) {
	env := newTestEnv(t)
	ann := env.token(t, "ann")

	tests := []struct {
		name string
		body string
	}{
		{"missing day", `{}`},
		{"unknown field", `{"day_id":"1","seats":2}`},
		{"malformed", `{"day_id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/bookings", ann, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAuthentication(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/bookings/my-booking", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/bookings/my-booking", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/bookings", env.token(t, "ann"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/google/login", "", map[string]string{"id_token": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "google login is not configured")

	rec = env.do(t, http.MethodGet, "/api/v1/auth/me", env.token(t, "root"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.User](t, rec).IsAdmin)
}

func TestProfileAndLogout(t *testing.T) {
	env := newTestEnv(t)
	ann := env.token(t, "ann")

	rec := env.do(t, http.MethodPut, "/api/v1/users/profile", ann, map[string]any{"name": "Ann B", "email_opt_in": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[model.User](t, rec)
	assert.Equal(t, "Ann B", u.Name)
	assert.False(t, u.EmailOptIn)

	rec = env.do(t, http.MethodPut, "/api/v1/users/profile", ann, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/auth/logout", ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[map[string]any](t, rec)["revoked"].(bool), "no revocation store configured")
}

func TestAdminBookingOverride(t *testing.T) {
	env := newTestEnv(t)
	root := env.token(t, "root")

	rec := env.do(t, http.MethodPost, "/api/v1/bookings", env.token(t, "ann"), map[string]string{"day_id": "1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := map[string]any{"email": "bo@example.com", "day_id": "1"}
	rec = env.do(t, http.MethodPost, "/api/v1/admin/bookings", root, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.True(t, decode[model.ErrorResponse](t, rec).Confirmable)

	req["confirm"] = true
	rec = env.do(t, http.MethodPost, "/api/v1/admin/bookings", root, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "bo", decode[model.Booking](t, rec).UserID)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/bookings", root,
		map[string]any{"email": "bo@example.com", "day_id": "2", "confirm": true})
	assert.Equal(t, http.StatusConflict, rec.Code, "confirm never bypasses one booking per user")

	rec = env.do(t, http.MethodGet, "/api/v1/admin/bookings", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[bookingListResponse](t, rec).Count)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/bookings/by-day", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byDay := decode[[]model.DayBookings](t, rec)
	require.Len(t, byDay, 2)
	assert.Len(t, byDay[0].Bookings, 2)
	assert.Empty(t, byDay[1].Bookings)

	rec = env.do(t, http.MethodPut, "/api/v1/admin/bookings/bo", root, map[string]any{"day_id": "2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/v1/admin/bookings/bo", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.BookingStatusCancelled, decode[model.Booking](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/bookings?include_cancelled=true", root, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[bookingListResponse](t, rec).Count)

	rec = env.do(t, http.MethodGet, "/api/v1/admin/bookings?include_cancelled=maybe", root, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminDayManagement(t *testing.T) {
	env := newTestEnv(t)
	root := env.token(t, "root")

	outside := map[string]any{"id": "encore", "date": "2024-11-08T00:00:00Z", "theme": "Encore"}
	rec := env.do(t, http.MethodPost, "/api/v1/admin/days", root, outside)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.True(t, decode[model.ErrorResponse](t, rec).Confirmable)

	outside["confirm"] = true
	rec = env.do(t, http.MethodPost, "/api/v1/admin/days", root, outside)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	d := decode[dayResponse](t, rec)
	assert.Equal(t, "encore", d.ID)
	assert.Equal(t, 6, d.Capacity)
	assert.Equal(t, 6, d.Available)

	rec = env.do(t, http.MethodPost, "/api/v1/admin/days", root,
		map[string]any{"date": "2024-11-03T00:00:00Z", "theme": "Clash"})
	assert.Equal(t, http.StatusConflict, rec.Code, "date already has a day")

	for _, u := range []string{"ann", "bo"} {
		rec = env.do(t, http.MethodPost, "/api/v1/bookings", env.token(t, u), map[string]string{"day_id": "2"})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/admin/days/2", root, map[string]any{"capacity": 1})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPatch, "/api/v1/admin/days/2", root, map[string]any{"capacity": 1, "confirm": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d = decode[dayResponse](t, rec)
	assert.Equal(t, 2, d.ActiveCount)
	assert.Equal(t, 0, d.Available)

	rec = env.do(t, http.MethodDelete, "/api/v1/admin/days/2", root, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/admin/days/2?cascade=true", root, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	deleted := decode[deleteDayResponse](t, rec)
	assert.Equal(t, "2", deleted.DayID)
	assert.Len(t, deleted.CancelledBookings, 2)

	rec = env.do(t, http.MethodGet, "/api/v1/bookings/my-booking", env.token(t, "ann"), nil)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = env.do(t, http.MethodPatch, "/api/v1/admin/days/2", root, map[string]any{"theme": "Gone"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminUpdateFestival(t *testing.T) {
	env := newTestEnv(t)
	root := env.token(t, "root")

	req := map[string]any{
		"name":             "Food & Friends Festival",
		"location":         "Aarhus",
		"start_date":       "2024-11-03T00:00:00Z",
		"end_date":         "2024-11-07T00:00:00Z",
		"price":            55,
		"capacity_per_day": 6,
	}
	rec := env.do(t, http.MethodPut, "/api/v1/admin/festival", root, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f := decode[model.Festival](t, rec)
	assert.Equal(t, "Aarhus", f.Location)
	assert.Equal(t, 55.0, f.Price)

	req["start_date"] = "2024-11-04T00:00:00Z"
	rec = env.do(t, http.MethodPut, "/api/v1/admin/festival", root, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "day 1 would fall outside the window")

	// Calendar dates in the seed file's format are accepted too.
	req["start_date"], req["end_date"] = "2024-11-02", "2024-11-08"
	rec = env.do(t, http.MethodPut, "/api/v1/admin/festival", root, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f = decode[model.Festival](t, rec)
	assert.Equal(t, time.Date(2024, 11, 8, 0, 0, 0, 0, time.UTC), f.EndDate.UTC())

	rec = env.do(t, http.MethodPost, "/api/v1/admin/days", root, map[string]any{"date": "2024-11-08", "theme": "Encore"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", tt.header)
		assert.Equal(t, tt.want, bearerToken(r), tt.header)
	}
}
