package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

// FestivalHandler serves the public festival and day listings.
type FestivalHandler struct {
	svc *service.RegistryService
	log *slog.Logger
}

// NewFestivalHandler constructs a FestivalHandler.
func NewFestivalHandler(svc *service.RegistryService, log *slog.Logger) *FestivalHandler {
	return &FestivalHandler{svc: svc, log: log}
}

// dayResponse adds the derived free-slot count to a day.
type dayResponse struct {
	model.Day
	Available int `json:"available"`
}

func toDayResponse(d model.Day) dayResponse {
	return dayResponse{Day: d, Available: d.Available()}
}

// Info handles GET /api/v1/festival/info
func (h *FestivalHandler) Info(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Festival(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Days handles GET /api/v1/festival/days
// Counts are a snapshot for display; booking decisions never rely on them.
func (h *FestivalHandler) Days(w http.ResponseWriter, r *http.Request) {
	days, err := h.svc.ListDays(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, false)
		return
	}

	out := make([]dayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, toDayResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}
