package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// AdminService is the administrative override layer. It relaxes validation
// when the operator confirms, but every mutation still goes through the same
// atomic store primitives as the participant path.
type AdminService struct {
	bookings *BookingService
	registry *RegistryService
	ledger   Ledger
	users    UserDirectory
	log      *slog.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(
	bookings *BookingService,
	registry *RegistryService,
	ledger Ledger,
	users UserDirectory,
	log *slog.Logger,
) *AdminService {
	return &AdminService{
		bookings: bookings,
		registry: registry,
		ledger:   ledger,
		users:    users,
		log:      log,
	}
}

// CreateBookingFor books a day on behalf of the user registered under email.
// With Confirm set the day's capacity may be exceeded; the one-booking-per-user
// rule still applies.
func (s *AdminService) CreateBookingFor(ctx context.Context, req model.AdminBookingRequest) (*model.Booking, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, passThrough("look up user", err)
	}

	b, err := s.bookings.create(ctx, user.ID, req.DayID, model.AllocPolicy{AllowOverCapacity: req.Confirm})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "admin booking created", b, req.Confirm)
	return b, nil
}

// MoveBookingFor moves the user's active booking to another day.
func (s *AdminService) MoveBookingFor(ctx context.Context, userID string, req model.AdminMoveRequest) (*model.Booking, error) {
	b, err := s.bookings.move(ctx, userID, req.DayID, model.AllocPolicy{AllowOverCapacity: req.Confirm})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "admin booking moved", b, req.Confirm)
	return b, nil
}

// CancelBookingFor cancels the user's active booking.
func (s *AdminService) CancelBookingFor(ctx context.Context, userID string) (*model.Booking, error) {
	b, err := s.bookings.cancel(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "admin booking cancelled", b, false)
	return b, nil
}

// ListBookings returns every booking, optionally including cancelled ones.
func (s *AdminService) ListBookings(ctx context.Context, includeCancelled bool) ([]model.Booking, error) {
	return s.ledger.List(ctx, model.BookingFilter{IncludeCancelled: includeCancelled})
}

// BookingsByDay returns every day ordered by date with its active bookings,
// each annotated with the owner's name and email and sorted by name.
func (s *AdminService) BookingsByDay(ctx context.Context) ([]model.DayBookings, error) {
	days, err := s.registry.ListDays(ctx)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	bookings, err := s.ledger.List(ctx, model.BookingFilter{})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	userByID := make(map[string]model.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	out := make([]model.DayBookings, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		out[i] = model.DayBookings{Day: d, Bookings: []model.BookingView{}}
		index[d.ID] = i
	}

	for _, b := range bookings {
		i, ok := index[b.DayID]
		if !ok {
			continue
		}
		u := userByID[b.UserID]
		out[i].Bookings = append(out[i].Bookings, model.BookingView{
			Booking:   b,
			UserName:  u.Name,
			UserEmail: u.Email,
		})
	}

	for i := range out {
		views := out[i].Bookings
		sort.SliceStable(views, func(a, b int) bool {
			return strings.ToLower(views[a].UserName) < strings.ToLower(views[b].UserName)
		})
	}
	return out, nil
}

// CreateDay adds a day; see RegistryService.CreateDay.
func (s *AdminService) CreateDay(ctx context.Context, req model.CreateDayRequest) (*model.Day, error) {
	return s.registry.CreateDay(ctx, req)
}

// UpdateDay edits a day; see RegistryService.UpdateDay.
func (s *AdminService) UpdateDay(ctx context.Context, id string, req model.UpdateDayRequest) (*model.Day, error) {
	return s.registry.UpdateDay(ctx, id, req)
}

// DeleteDay removes a day; see RegistryService.DeleteDay.
func (s *AdminService) DeleteDay(ctx context.Context, id string, cascade bool) ([]model.Booking, error) {
	return s.registry.DeleteDay(ctx, id, cascade)
}

// UpdateFestival replaces the festival settings.
func (s *AdminService) UpdateFestival(ctx context.Context, req model.FestivalRequest) (*model.Festival, error) {
	return s.registry.UpdateFestival(ctx, req)
}

func (s *AdminService) audit(ctx context.Context, msg string, b *model.Booking, override bool) {
	s.log.LogAttrs(ctx, slog.LevelInfo, msg,
		slog.String("booking_id", b.ID),
		slog.String("user_id", b.UserID),
		slog.String("day_id", b.DayID),
		slog.Bool("override", override),
	)
}

// IsAdminConfirmable reports whether an admin booking call failing with err
// may succeed when repeated with confirmation.
func IsAdminConfirmable(err error) bool {
	return model.IsConfirmable(err) || errors.Is(err, model.ErrCapacityExceeded)
}
