package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFestival_Contains(t *testing.T) {
	f := &Festival{StartDate: date(2024, 11, 3), EndDate: date(2024, 11, 7)}

	assert.True(t, f.Contains(date(2024, 11, 3)), "start is inclusive")
	assert.True(t, f.Contains(date(2024, 11, 5)))
	assert.True(t, f.Contains(date(2024, 11, 7)), "end is inclusive")
	assert.True(t, f.Contains(time.Date(2024, 11, 7, 19, 0, 0, 0, time.UTC)), "the whole last day counts")
	assert.True(t, f.Contains(time.Date(2024, 11, 7, 23, 59, 59, 0, time.UTC)))
	assert.False(t, f.Contains(date(2024, 11, 2)))
	assert.False(t, f.Contains(date(2024, 11, 8)))
}

func TestDay_Availability(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		active     int
		available  int
		full       bool
		overbooked bool
	}{
		{"empty", 6, 0, 6, false, false},
		{"partial", 6, 4, 2, false, false},
		{"exactly full", 6, 6, 0, true, false},
		{"over capacity after override", 3, 5, 0, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Day{Capacity: tt.capacity, ActiveCount: tt.active}
			assert.Equal(t, tt.available, d.Available())
			assert.Equal(t, tt.full, d.IsFull())
			assert.Equal(t, tt.overbooked, d.Overbooked())
		})
	}
}

func TestBooking_IsActive(t *testing.T) {
	assert.True(t, (&Booking{Status: BookingStatusActive}).IsActive())
	assert.False(t, (&Booking{Status: BookingStatusCancelled}).IsActive())
}

func TestIsConfirmable(t *testing.T) {
	assert.True(t, IsConfirmable(fmt.Errorf("%w: 5 active", ErrCapacityBelowActiveBookings)))
	assert.True(t, IsConfirmable(fmt.Errorf("%w: 2024-12-01", ErrFestivalWindowViolation)))
	assert.False(t, IsConfirmable(ErrCapacityExceeded))
	assert.False(t, IsConfirmable(ErrAlreadyBooked))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("%w: day 1", ErrLockTimeout)))
	assert.True(t, IsRetryable(ErrConcurrentUpdate))
	assert.False(t, IsRetryable(ErrContention))
	assert.False(t, IsRetryable(ErrCapacityExceeded))
}

func TestDayUpdate_IsEmpty(t *testing.T) {
	assert.True(t, DayUpdate{}.IsEmpty())

	capacity := 3
	assert.False(t, DayUpdate{Capacity: &capacity}.IsEmpty())
}
