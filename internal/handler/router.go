package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/festival-booking/internal/auth"
	"github.com/Shivanand-hulikatti/festival-booking/internal/config"
	"github.com/Shivanand-hulikatti/festival-booking/internal/service"
)

// Services bundles what the router dispatches to.
type Services struct {
	Auth     *auth.Service
	Bookings *service.BookingService
	Registry *service.RegistryService
	Admin    *service.AdminService
}

// NewRouter builds the HTTP API. Handlers run with a context bounded by
// cfg.RequestTimeout.
func NewRouter(svc Services, cfg config.HTTP, log *slog.Logger) http.Handler {
	authH := NewAuthHandler(svc.Auth, log)
	bookingH := NewBookingHandler(svc.Bookings, log)
	festivalH := NewFestivalHandler(svc.Registry, log)
	adminH := NewAdminHandler(svc.Admin, log)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/google/login", authH.GoogleLogin)

		r.Get("/festival/info", festivalH.Info)
		r.Get("/festival/days", festivalH.Days)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(svc.Auth, log))

			r.Post("/auth/logout", authH.Logout)
			r.Get("/auth/me", authH.Me)

			r.Get("/users/profile", authH.Me)
			r.Put("/users/profile", authH.UpdateProfile)

			r.Post("/bookings", bookingH.Create)
			r.Get("/bookings/my-booking", bookingH.Get)
			r.Put("/bookings/my-booking", bookingH.Update)
			r.Delete("/bookings/my-booking", bookingH.Cancel)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Get("/bookings", adminH.ListBookings)
				r.Get("/bookings/by-day", adminH.BookingsByDay)
				r.Post("/bookings", adminH.CreateBooking)
				r.Put("/bookings/{userID}", adminH.MoveBooking)
				r.Delete("/bookings/{userID}", adminH.CancelBooking)

				r.Post("/days", adminH.CreateDay)
				r.Patch("/days/{dayID}", adminH.UpdateDay)
				r.Delete("/days/{dayID}", adminH.DeleteDay)

				r.Put("/festival", adminH.UpdateFestival)
			})
		})
	})

	return r
}
