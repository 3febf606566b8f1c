package model

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("admin access required")
)

var (
	ErrDayNotFound      = errors.New("day not found")
	ErrFestivalNotFound = errors.New("festival not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoActiveBooking  = errors.New("no active booking")
)

var (
	ErrAlreadyBooked        = errors.New("user already has an active booking")
	ErrCapacityExceeded     = errors.New("day is fully booked")
	ErrDayHasActiveBookings = errors.New("day has active bookings")
	ErrDayDateTaken         = errors.New("another day already uses this date")
)

// Admin-confirmable warnings. The admin path may retry with confirmation.
var (
	ErrCapacityBelowActiveBookings = errors.New("capacity is below the number of active bookings")
	ErrFestivalWindowViolation     = errors.New("date is outside the festival window")
)

var (
	ErrValidation = errors.New("validation error")
)

// ErrContention is surfaced once the engine gives up retrying a contended lock.
var ErrContention = errors.New("booking is busy, try again")

// Retryable store conditions. They never reach callers of the engine.
var (
	ErrLockTimeout      = errors.New("lock wait timed out")
	ErrConcurrentUpdate = errors.New("booking changed concurrently")
)

// IsConfirmable reports whether err is a warning an administrator may
// override by repeating the call with confirmation.
func IsConfirmable(err error) bool {
	return errors.Is(err, ErrCapacityBelowActiveBookings) ||
		errors.Is(err, ErrFestivalWindowViolation)
}

// IsRetryable reports whether err is a transient lock or staleness condition.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrConcurrentUpdate)
}
