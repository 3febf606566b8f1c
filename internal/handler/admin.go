package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

// AdminHandler serves the administrative override interface. Confirmable
// warnings come back as 422 with "confirmable": true; the client repeats the
// call with "confirm": true to proceed.
type AdminHandler struct {
	svc *service.AdminService
	log *slog.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc *service.AdminService, log *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, log: log}
}

type bookingListResponse struct {
	Bookings []model.Booking `json:"bookings"`
	Count    int             `json:"count"`
}

// ListBookings handles GET /api/v1/admin/bookings
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	includeCancelled, err := boolQuery(r, "include_cancelled")
	if err != nil {
		writeError(w, http.StatusBadRequest, "include_cancelled must be a boolean")
		return
	}

	bookings, err := h.svc.ListBookings(r.Context(), includeCancelled)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookingListResponse{Bookings: bookings, Count: len(bookings)})
}

// BookingsByDay handles GET /api/v1/admin/bookings/by-day
func (h *AdminHandler) BookingsByDay(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.BookingsByDay(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	if out == nil {
		out = []model.DayBookings{}
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateBooking handles POST /api/v1/admin/bookings
func (h *AdminHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.AdminBookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.CreateBookingFor(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// MoveBooking handles PUT /api/v1/admin/bookings/{userID}
func (h *AdminHandler) MoveBooking(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req model.AdminMoveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.MoveBookingFor(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CancelBooking handles DELETE /api/v1/admin/bookings/{userID}
func (h *AdminHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	b, err := h.svc.CancelBookingFor(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CreateDay handles POST /api/v1/admin/days
func (h *AdminHandler) CreateDay(w http.ResponseWriter, r *http.Request) {
	var req model.CreateDayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.svc.CreateDay(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	writeJSON(w, http.StatusCreated, toDayResponse(*d))
}

// UpdateDay handles PATCH /api/v1/admin/days/{dayID}
func (h *AdminHandler) UpdateDay(w http.ResponseWriter, r *http.Request) {
	dayID := chi.URLParam(r, "dayID")

	var req model.UpdateDayRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	d, err := h.svc.UpdateDay(r.Context(), dayID, req)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	writeJSON(w, http.StatusOK, toDayResponse(*d))
}

type deleteDayResponse struct {
	DayID             string          `json:"day_id"`
	CancelledBookings []model.Booking `json:"cancelled_bookings"`
}

// DeleteDay handles DELETE /api/v1/admin/days/{dayID}
func (h *AdminHandler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	dayID := chi.URLParam(r, "dayID")
	cascade, err := boolQuery(r, "cascade")
	if err != nil {
		writeError(w, http.StatusBadRequest, "cascade must be a boolean")
		return
	}

	cancelled, err := h.svc.DeleteDay(r.Context(), dayID, cascade)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	if cancelled == nil {
		cancelled = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, deleteDayResponse{DayID: dayID, CancelledBookings: cancelled})
}

// UpdateFestival handles PUT /api/v1/admin/festival
func (h *AdminHandler) UpdateFestival(w http.ResponseWriter, r *http.Request) {
	var req model.FestivalRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	f, err := h.svc.UpdateFestival(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, true)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func boolQuery(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
