// Package service implements the booking allocation engine, the day registry
// and the administrative override layer on top of the store ports.
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

// Options tunes contention handling shared by the services.
type Options struct {
	// LockRetries is how many times a contended store operation is retried
	// before ErrContention is returned.
	LockRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

type retrier struct {
	attempts int
	backoff  time.Duration
	log      *slog.Logger
}

func newRetrier(opts Options, log *slog.Logger) retrier {
	r := retrier{attempts: opts.LockRetries + 1, backoff: opts.RetryBackoff, log: log}
	if r.attempts < 1 {
		r.attempts = 1
	}
	return r
}

// do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent.
func (r retrier) do(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = fn()
		if err == nil || !model.IsRetryable(err) {
			return err
		}
		r.log.LogAttrs(ctx, slog.LevelWarn, "store contention",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * r.backoff):
		}
	}
	return fmt.Errorf("%w: %s: %v", model.ErrContention, op, err)
}

func clockOf(opts Options) func() time.Time {
	if opts.Clock != nil {
		return opts.Clock
	}
	return time.Now
}

// BookingService is the allocation engine. It guarantees at most one active
// booking per user and never more active bookings on a day than its capacity,
// except through an admin override.
type BookingService struct {
	ledger   Ledger
	registry Registry
	log      *slog.Logger
	retry    retrier
	now      func() time.Time
}

// NewBookingService constructs a BookingService with its dependencies.
func NewBookingService(ledger Ledger, registry Registry, log *slog.Logger, opts Options) *BookingService {
	return &BookingService{
		ledger:   ledger,
		registry: registry,
		log:      log,
		retry:    newRetrier(opts, log),
		now:      clockOf(opts),
	}
}

// CreateBooking books dayID for the user.
func (s *BookingService) CreateBooking(ctx context.Context, userID, dayID string) (*model.Booking, error) {
	return s.create(ctx, userID, dayID, model.AllocPolicy{})
}

// GetBooking returns the user's active booking, or nil when there is none.
func (s *BookingService) GetBooking(ctx context.Context, userID string) (*model.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrValidation)
	}
	b, err := s.ledger.ActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNoActiveBooking) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateBooking moves the user's active booking to newDayID in one atomic
// step. On failure the original booking is untouched.
func (s *BookingService) UpdateBooking(ctx context.Context, userID, newDayID string) (*model.Booking, error) {
	return s.move(ctx, userID, newDayID, model.AllocPolicy{})
}

// CancelBooking cancels the user's active booking.
func (s *BookingService) CancelBooking(ctx context.Context, userID string) error {
	_, err := s.cancel(ctx, userID)
	return err
}

func (s *BookingService) create(ctx context.Context, userID, dayID string, p model.AllocPolicy) (*model.Booking, error) {
	userID, dayID = strings.TrimSpace(userID), strings.TrimSpace(dayID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrValidation)
	}
	if dayID == "" {
		return nil, fmt.Errorf("%w: day_id is required", model.ErrValidation)
	}

	festival, err := s.registry.Festival(ctx)
	if err != nil {
		return nil, fmt.Errorf("load festival: %w", err)
	}

	now := s.now().UTC()
	b := &model.Booking{
		ID:          uuid.New().String(),
		UserID:      userID,
		DayID:       dayID,
		FestivalID:  festival.ID,
		Price:       festival.Price,
		BookingDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.retry.do(ctx, "create booking", func() error {
		return s.ledger.Create(ctx, b, p)
	})
	if err != nil {
		return nil, passThrough("create booking", err)
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "booking created",
		slog.String("booking_id", b.ID),
		slog.String("user_id", userID),
		slog.String("day_id", dayID),
		slog.Bool("override", p.AllowOverCapacity),
	)
	return b, nil
}

func (s *BookingService) move(ctx context.Context, userID, dayID string, p model.AllocPolicy) (*model.Booking, error) {
	userID, dayID = strings.TrimSpace(userID), strings.TrimSpace(dayID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrValidation)
	}
	if dayID == "" {
		return nil, fmt.Errorf("%w: day_id is required", model.ErrValidation)
	}

	var b *model.Booking
	err := s.retry.do(ctx, "move booking", func() error {
		var err error
		b, err = s.ledger.Move(ctx, userID, dayID, p, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, passThrough("move booking", err)
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "booking moved",
		slog.String("booking_id", b.ID),
		slog.String("user_id", userID),
		slog.String("day_id", dayID),
		slog.Bool("override", p.AllowOverCapacity),
	)
	return b, nil
}

func (s *BookingService) cancel(ctx context.Context, userID string) (*model.Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrValidation)
	}

	var b *model.Booking
	err := s.retry.do(ctx, "cancel booking", func() error {
		var err error
		b, err = s.ledger.Cancel(ctx, userID, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, passThrough("cancel booking", err)
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "booking cancelled",
		slog.String("booking_id", b.ID),
		slog.String("user_id", userID),
		slog.String("day_id", b.DayID),
	)
	return b, nil
}

// passThrough surfaces domain errors unchanged so handlers can pick a status,
// and wraps anything else with the operation name.
func passThrough(op string, err error) error {
	for _, target := range []error{
		model.ErrValidation,
		model.ErrDayNotFound,
		model.ErrNoActiveBooking,
		model.ErrAlreadyBooked,
		model.ErrCapacityExceeded,
		model.ErrCapacityBelowActiveBookings,
		model.ErrFestivalWindowViolation,
		model.ErrDayHasActiveBookings,
		model.ErrDayDateTaken,
		model.ErrFestivalNotFound,
		model.ErrUserNotFound,
		model.ErrContention,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
