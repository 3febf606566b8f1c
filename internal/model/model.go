// Package model defines the core domain types for the festival booking system.
package model

import "time"

// Festival is the enclosing event. It defines the window in which days may be
// scheduled and the defaults applied to new days.
type Festival struct {
	ID             string    `json:"festival_id"`
	Name           string    `json:"name"`
	Location       string    `json:"location"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	Price          float64   `json:"price"`
	CapacityPerDay int       `json:"capacity_per_day"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Contains reports whether t's calendar date (UTC) falls inside the festival
// window, first and last dates included.
func (f *Festival) Contains(t time.Time) bool {
	d := calendarDate(t)
	return !d.Before(calendarDate(f.StartDate)) && !d.After(calendarDate(f.EndDate))
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day is a capacity-bounded bookable unit on one calendar date.
type Day struct {
	ID         string    `json:"id"`
	FestivalID string    `json:"festival_id"`
	Date       time.Time `json:"date"`
	Theme      string    `json:"theme"`
	Menu       string    `json:"menu"`
	Capacity   int       `json:"capacity"`
	// ActiveCount is the number of active bookings observed when the day was
	// read. It is informational only and never drives an allocation decision.
	ActiveCount int       `json:"tickets_sold"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Available returns the number of free slots, never negative.
func (d *Day) Available() int {
	if d.ActiveCount >= d.Capacity {
		return 0
	}
	return d.Capacity - d.ActiveCount
}

// IsFull returns true when no slots remain.
func (d *Day) IsFull() bool {
	return d.ActiveCount >= d.Capacity
}

// Overbooked returns true when an admin override left more active bookings
// than the day's capacity.
func (d *Day) Overbooked() bool {
	return d.ActiveCount > d.Capacity
}

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a single reservation of one day by one user.
type Booking struct {
	ID         string        `json:"booking_id"`
	UserID     string        `json:"user_id"`
	DayID      string        `json:"day_id"`
	FestivalID string        `json:"festival_id"`
	Status     BookingStatus `json:"status"`
	// Price is recorded from the festival at creation and never processed.
	Price       float64   `json:"price"`
	BookingDate time.Time `json:"booking_date"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsActive reports whether the booking counts against capacity.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusActive
}

// User is owned by the identity collaborator. The booking engine only reads it.
type User struct {
	ID         string    `json:"user_id"`
	GoogleID   string    `json:"google_id,omitempty"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	EmailOptIn bool      `json:"email_opt_in"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
