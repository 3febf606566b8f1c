package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// Registry stores the festival and its bookable days.
type Registry interface {
	Festival(ctx context.Context) (*model.Festival, error)
	SaveFestival(ctx context.Context, f *model.Festival) error

	ListDays(ctx context.Context) ([]model.Day, error)
	GetDay(ctx context.Context, id string) (*model.Day, error)
	CreateDay(ctx context.Context, d *model.Day) error
	// UpdateDay applies u under the day's exclusive lock. A capacity below the
	// live active count fails with ErrCapacityBelowActiveBookings unless
	// confirm is set.
	UpdateDay(ctx context.Context, id string, u model.DayUpdate, confirm bool, now time.Time) (*model.Day, error)
	// DeleteDay removes a day. With active bookings it fails with
	// ErrDayHasActiveBookings unless cascade is set, in which case those
	// bookings are cancelled in the same atomic unit and returned.
	DeleteDay(ctx context.Context, id string, cascade bool, now time.Time) ([]model.Booking, error)
}

// Ledger stores bookings. Every mutating method is a single atomic unit that
// holds the affected days' locks for its whole check-and-write.
type Ledger interface {
	// Create inserts b as the user's only active booking on b.DayID.
	Create(ctx context.Context, b *model.Booking, p model.AllocPolicy) error
	// Move reassigns the user's active booking to dayID, keeping its ID and
	// booking date. Locks on both days are taken in ascending id order.
	Move(ctx context.Context, userID, dayID string, p model.AllocPolicy, now time.Time) (*model.Booking, error)
	// Cancel transitions the user's active booking to cancelled.
	Cancel(ctx context.Context, userID string, now time.Time) (*model.Booking, error)
	// ActiveByUser returns ErrNoActiveBooking when the user holds none.
	ActiveByUser(ctx context.Context, userID string) (*model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
}

// UserDirectory is the slice of the identity store the services read.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}
