// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

var validate = validator.New()

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeAndValidate decodes the body into dst and runs its validate tags.
// It writes a 400 and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// ─── Error mapping ────────────────────────────────────────────────────────────

// errorStatus maps a service error to an HTTP status. On admin routes a
// full day is a warning the operator may confirm rather than a conflict.
func errorStatus(err error, admin bool) (status int, confirmable bool) {
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized, false
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, false
	case admin && service.IsAdminConfirmable(err), model.IsConfirmable(err):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, model.ErrDayNotFound),
		errors.Is(err, model.ErrFestivalNotFound),
		errors.Is(err, model.ErrUserNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, model.ErrAlreadyBooked),
		errors.Is(err, model.ErrCapacityExceeded),
		errors.Is(err, model.ErrNoActiveBooking),
		errors.Is(err, model.ErrDayHasActiveBookings),
		errors.Is(err, model.ErrDayDateTaken),
		errors.Is(err, model.ErrContention):
		return http.StatusConflict, false
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, false
	default:
		return http.StatusInternalServerError, false
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, admin bool) {
	status, confirmable := errorStatus(err, admin)
	if status == http.StatusInternalServerError {
		log.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, status, "internal server error")
		return
	}
	writeJSON(w, status, model.ErrorResponse{Error: err.Error(), Confirmable: confirmable})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
