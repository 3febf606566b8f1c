package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/festival-booking/internal/auth"
	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

// BookingHandler serves a participant's own booking.
type BookingHandler struct {
	svc *service.BookingService
	log *slog.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, log *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

// Create handles POST /api/v1/bookings
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)

	var req model.CreateBookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.CreateBooking(r.Context(), id.UserID, req.DayID)
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// Get handles GET /api/v1/bookings/my-booking
// Responds with null when the caller holds no active booking.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)

	b, err := h.svc.GetBooking(r.Context(), id.UserID)
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Update handles PUT /api/v1/bookings/my-booking
func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)

	var req model.CreateBookingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	b, err := h.svc.UpdateBooking(r.Context(), id.UserID, req.DayID)
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Cancel handles DELETE /api/v1/bookings/my-booking
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)

	if err := h.svc.CancelBooking(r.Context(), id.UserID); err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "booking cancelled"})
}

// mustIdentity returns the identity set by Authenticate. Routes using it are
// always mounted behind that middleware.
func mustIdentity(r *http.Request) *auth.Identity {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		panic("handler: route mounted without Authenticate middleware")
	}
	return id
}
