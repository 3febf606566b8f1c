package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// Create inserts b as the user's active booking on b.DayID.
func (s *Store) Create(ctx context.Context, b *model.Booking, p model.AllocPolicy) error {
	unlock, err := s.lockDays(ctx, b.DayID)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeByUser[b.UserID]; ok {
		return model.ErrAlreadyBooked
	}

	day := s.days[b.DayID].day
	active := s.activeCount(b.DayID)
	if !p.AllowOverCapacity && active >= day.Capacity {
		return fmt.Errorf("%w: %d of %d slots taken", model.ErrCapacityExceeded, active, day.Capacity)
	}

	b.Status = model.BookingStatusActive
	b.FestivalID = day.FestivalID
	cp := *b
	s.bookings[cp.ID] = &cp
	s.activeByUser[cp.UserID] = cp.ID
	return nil
}

// Move reassigns the user's active booking to dayID.
func (s *Store) Move(ctx context.Context, userID, dayID string, p model.AllocPolicy, now time.Time) (*model.Booking, error) {
	s.mu.RLock()
	id, ok := s.activeByUser[userID]
	var from string
	if ok {
		from = s.bookings[id].DayID
	}
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNoActiveBooking
	}

	unlock, err := s.lockDays(ctx, from, dayID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bookings[id]
	if !b.IsActive() || b.DayID != from {
		return nil, fmt.Errorf("%w: booking %s", model.ErrConcurrentUpdate, id)
	}
	if dayID == from {
		cp := *b
		return &cp, nil
	}

	dest := s.days[dayID].day
	active := s.activeCount(dayID)
	if !p.AllowOverCapacity && active >= dest.Capacity {
		return nil, fmt.Errorf("%w: %d of %d slots taken", model.ErrCapacityExceeded, active, dest.Capacity)
	}

	b.DayID = dayID
	b.FestivalID = dest.FestivalID
	b.UpdatedAt = now
	cp := *b
	return &cp, nil
}

// Cancel transitions the user's active booking to cancelled.
func (s *Store) Cancel(ctx context.Context, userID string, now time.Time) (*model.Booking, error) {
	s.mu.RLock()
	id, ok := s.activeByUser[userID]
	var dayID string
	if ok {
		dayID = s.bookings[id].DayID
	}
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNoActiveBooking
	}

	unlock, err := s.lockDays(ctx, dayID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bookings[id]
	if !b.IsActive() || b.DayID != dayID {
		return nil, fmt.Errorf("%w: booking %s", model.ErrConcurrentUpdate, id)
	}
	b.Status = model.BookingStatusCancelled
	b.UpdatedAt = now
	delete(s.activeByUser, userID)

	cp := *b
	return &cp, nil
}

// ActiveByUser returns the user's active booking.
func (s *Store) ActiveByUser(_ context.Context, userID string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeByUser[userID]
	if !ok {
		return nil, model.ErrNoActiveBooking
	}
	cp := *s.bookings[id]
	return &cp, nil
}

// List returns bookings ordered by booking date.
func (s *Store) List(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Booking
	for _, b := range s.bookings {
		if f.DayID != "" && b.DayID != f.DayID {
			continue
		}
		if !f.IncludeCancelled && !b.IsActive() {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingDate.Equal(out[j].BookingDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].BookingDate.Before(out[j].BookingDate)
	})
	return out, nil
}
