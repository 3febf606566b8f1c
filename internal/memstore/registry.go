package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// Festival returns the configured festival.
func (s *Store) Festival(_ context.Context) (*model.Festival, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.festival == nil {
		return nil, model.ErrFestivalNotFound
	}
	cp := *s.festival
	return &cp, nil
}

// SaveFestival creates or replaces the festival.
func (s *Store) SaveFestival(_ context.Context, f *model.Festival) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *f
	s.festival = &cp
	return nil
}

// ListDays returns the non-deleted days ordered by date.
func (s *Store) ListDays(_ context.Context) ([]model.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]model.Day, 0, len(s.days))
	for id, e := range s.days {
		if e.deleted {
			continue
		}
		d := e.day
		d.ActiveCount = s.activeCount(id)
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// GetDay returns a single day or model.ErrDayNotFound.
func (s *Store) GetDay(_ context.Context, id string) (*model.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.days[id]
	if !ok || e.deleted {
		return nil, model.ErrDayNotFound
	}
	d := e.day
	d.ActiveCount = s.activeCount(id)
	return &d, nil
}

// CreateDay registers a new day.
func (s *Store) CreateDay(_ context.Context, d *model.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.days[d.ID]; ok {
		return fmt.Errorf("%w: day %s already exists", model.ErrValidation, d.ID)
	}
	if err := s.checkDateFree(d.FestivalID, d.Date, ""); err != nil {
		return err
	}

	cp := *d
	cp.ActiveCount = 0
	s.days[d.ID] = &dayEntry{day: cp, lock: semaphore.NewWeighted(1)}
	return nil
}

// UpdateDay applies u while holding the day's lock.
func (s *Store) UpdateDay(ctx context.Context, id string, u model.DayUpdate, confirm bool, now time.Time) (*model.Day, error) {
	unlock, err := s.lockDays(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.days[id]
	active := s.activeCount(id)

	if u.Capacity != nil && *u.Capacity < active && !confirm {
		return nil, fmt.Errorf("%w: day %s has %d active bookings, requested capacity %d",
			model.ErrCapacityBelowActiveBookings, id, active, *u.Capacity)
	}
	if u.Date != nil {
		if err := s.checkDateFree(e.day.FestivalID, *u.Date, id); err != nil {
			return nil, err
		}
		e.day.Date = *u.Date
	}
	if u.Theme != nil {
		e.day.Theme = *u.Theme
	}
	if u.Menu != nil {
		e.day.Menu = *u.Menu
	}
	if u.Capacity != nil {
		e.day.Capacity = *u.Capacity
	}
	e.day.UpdatedAt = now

	d := e.day
	d.ActiveCount = active
	return &d, nil
}

// DeleteDay removes a day, cancelling its active bookings when cascade is set.
// Days with booking history stay in memory, hidden, so the history keeps a
// valid reference.
func (s *Store) DeleteDay(ctx context.Context, id string, cascade bool, now time.Time) ([]model.Booking, error) {
	unlock, err := s.lockDays(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	var active []*model.Booking
	history := false
	for _, b := range s.bookings {
		if b.DayID != id {
			continue
		}
		history = true
		if b.IsActive() {
			active = append(active, b)
		}
	}
	if len(active) > 0 && !cascade {
		return nil, fmt.Errorf("%w: %d on day %s", model.ErrDayHasActiveBookings, len(active), id)
	}

	cancelled := make([]model.Booking, 0, len(active))
	for _, b := range active {
		b.Status = model.BookingStatusCancelled
		b.UpdatedAt = now
		delete(s.activeByUser, b.UserID)
		cancelled = append(cancelled, *b)
	}

	if history {
		s.days[id].deleted = true
	} else {
		delete(s.days, id)
	}
	return cancelled, nil
}

// checkDateFree rejects a date already used by another live day of the same
// festival. Callers hold s.mu.
func (s *Store) checkDateFree(festivalID string, date time.Time, exceptID string) error {
	for id, e := range s.days {
		if id == exceptID || e.deleted || e.day.FestivalID != festivalID {
			continue
		}
		if e.day.Date.Equal(date) {
			return fmt.Errorf("%w: %s", model.ErrDayDateTaken, date.Format(time.RFC3339))
		}
	}
	return nil
}
