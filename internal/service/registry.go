package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// RegistryService manages the festival settings and its days.
type RegistryService struct {
	registry Registry
	log      *slog.Logger
	retry    retrier
	now      func() time.Time
}

// NewRegistryService constructs a RegistryService.
func NewRegistryService(registry Registry, log *slog.Logger, opts Options) *RegistryService {
	return &RegistryService{
		registry: registry,
		log:      log,
		retry:    newRetrier(opts, log),
		now:      clockOf(opts),
	}
}

// Festival returns the festival settings.
func (s *RegistryService) Festival(ctx context.Context) (*model.Festival, error) {
	return s.registry.Festival(ctx)
}

// UpdateFestival creates or replaces the festival settings. Moving the window
// so that existing days fall outside it requires confirmation.
func (s *RegistryService) UpdateFestival(ctx context.Context, req model.FestivalRequest) (*model.Festival, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", model.ErrValidation)
	}
	if req.CapacityPerDay <= 0 {
		return nil, fmt.Errorf("%w: capacity_per_day must be a positive integer", model.ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", model.ErrValidation)
	}

	now := s.now().UTC()
	f := &model.Festival{ID: uuid.New().String(), CreatedAt: now}
	existing, err := s.registry.Festival(ctx)
	switch {
	case err == nil:
		f = existing
	case !errors.Is(err, model.ErrFestivalNotFound):
		return nil, fmt.Errorf("load festival: %w", err)
	}

	f.Name = req.Name
	f.Location = strings.TrimSpace(req.Location)
	f.StartDate = req.StartDate.UTC()
	f.EndDate = req.EndDate.UTC()
	f.Price = req.Price
	f.CapacityPerDay = req.CapacityPerDay
	f.UpdatedAt = now

	if !req.Confirm {
		days, err := s.registry.ListDays(ctx)
		if err != nil {
			return nil, fmt.Errorf("list days: %w", err)
		}
		for _, d := range days {
			if !f.Contains(d.Date) {
				return nil, fmt.Errorf("%w: day %s (%s) falls outside %s to %s",
					model.ErrFestivalWindowViolation, d.ID, d.Date.Format(time.DateOnly),
					f.StartDate.Format(time.DateOnly), f.EndDate.Format(time.DateOnly))
			}
		}
	}

	if err := s.registry.SaveFestival(ctx, f); err != nil {
		return nil, fmt.Errorf("save festival: %w", err)
	}
	s.log.LogAttrs(ctx, slog.LevelInfo, "festival updated",
		slog.String("festival_id", f.ID),
		slog.Bool("override", req.Confirm),
	)
	return f, nil
}

// ListDays returns every day with its availability at read time.
func (s *RegistryService) ListDays(ctx context.Context) ([]model.Day, error) {
	return s.registry.ListDays(ctx)
}

// GetDay returns a single day.
func (s *RegistryService) GetDay(ctx context.Context, id string) (*model.Day, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: day id is required", model.ErrValidation)
	}
	return s.registry.GetDay(ctx, id)
}

// CreateDay adds a day to the festival. Capacity defaults to the festival's
// capacity_per_day. A date outside the window requires confirmation.
func (s *RegistryService) CreateDay(ctx context.Context, req model.CreateDayRequest) (*model.Day, error) {
	req.Theme = strings.TrimSpace(req.Theme)
	if req.Theme == "" {
		return nil, fmt.Errorf("%w: theme is required", model.ErrValidation)
	}
	if req.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", model.ErrValidation)
	}
	if req.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must be a positive integer", model.ErrValidation)
	}

	festival, err := s.registry.Festival(ctx)
	if err != nil {
		return nil, fmt.Errorf("load festival: %w", err)
	}
	date := req.Date.UTC()
	if !req.Confirm && !festival.Contains(date) {
		return nil, windowError(festival, date)
	}

	now := s.now().UTC()
	d := &model.Day{
		ID:         strings.TrimSpace(req.ID),
		FestivalID: festival.ID,
		Date:       date,
		Theme:      req.Theme,
		Menu:       strings.TrimSpace(req.Menu),
		Capacity:   req.Capacity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Capacity == 0 {
		d.Capacity = festival.CapacityPerDay
	}

	if err := s.registry.CreateDay(ctx, d); err != nil {
		return nil, passThrough("create day", err)
	}
	s.log.LogAttrs(ctx, slog.LevelInfo, "day created",
		slog.String("day_id", d.ID),
		slog.Int("capacity", d.Capacity),
		slog.Bool("override", req.Confirm),
	)
	return d, nil
}

// UpdateDay edits a day. Lowering capacity below the live active count, or
// moving the date outside the festival window, requires confirmation. Existing
// bookings are never moved or evicted.
func (s *RegistryService) UpdateDay(ctx context.Context, id string, req model.UpdateDayRequest) (*model.Day, error) {
	u := model.DayUpdate{Date: req.Date, Theme: req.Theme, Menu: req.Menu, Capacity: req.Capacity}
	if u.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}
	if u.Capacity != nil && *u.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be a positive integer", model.ErrValidation)
	}
	if u.Theme != nil {
		theme := strings.TrimSpace(*u.Theme)
		if theme == "" {
			return nil, fmt.Errorf("%w: theme cannot be empty", model.ErrValidation)
		}
		u.Theme = &theme
	}
	if u.Date != nil {
		date := u.Date.UTC()
		u.Date = &date
		if !req.Confirm {
			festival, err := s.registry.Festival(ctx)
			if err != nil {
				return nil, fmt.Errorf("load festival: %w", err)
			}
			if !festival.Contains(date) {
				return nil, windowError(festival, date)
			}
		}
	}

	var d *model.Day
	err := s.retry.do(ctx, "update day", func() error {
		var err error
		d, err = s.registry.UpdateDay(ctx, id, u, req.Confirm, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, passThrough("update day", err)
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "day updated",
		slog.String("day_id", id),
		slog.Int("capacity", d.Capacity),
		slog.Int("active", d.ActiveCount),
		slog.Bool("override", req.Confirm),
	)
	if d.Overbooked() {
		s.log.LogAttrs(ctx, slog.LevelWarn, "day over capacity after override",
			slog.String("day_id", id),
			slog.Int("capacity", d.Capacity),
			slog.Int("active", d.ActiveCount),
		)
	}
	return d, nil
}

// DeleteDay removes a day. Active bookings block the delete unless cascade is
// set, in which case they are cancelled in the same atomic step.
func (s *RegistryService) DeleteDay(ctx context.Context, id string, cascade bool) ([]model.Booking, error) {
	var cancelled []model.Booking
	err := s.retry.do(ctx, "delete day", func() error {
		var err error
		cancelled, err = s.registry.DeleteDay(ctx, id, cascade, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, passThrough("delete day", err)
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "day deleted",
		slog.String("day_id", id),
		slog.Int("cancelled_bookings", len(cancelled)),
	)
	return cancelled, nil
}

func windowError(f *model.Festival, date time.Time) error {
	return fmt.Errorf("%w: %s is not within %s to %s",
		model.ErrFestivalWindowViolation, date.Format(time.DateOnly),
		f.StartDate.Format(time.DateOnly), f.EndDate.Format(time.DateOnly))
}
