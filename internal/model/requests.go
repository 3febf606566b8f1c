package model

import "time"

// AllocPolicy relaxes allocation validation. Only the admin path sets it.
type AllocPolicy struct {
	// AllowOverCapacity lets a booking land on a day whose active count has
	// already reached capacity.
	AllowOverCapacity bool
}

// DayUpdate carries a partial update of a day. Nil fields are left unchanged.
type DayUpdate struct {
	Date     *time.Time
	Theme    *string
	Menu     *string
	Capacity *int
}

// IsEmpty reports whether the update changes nothing.
func (u DayUpdate) IsEmpty() bool {
	return u.Date == nil && u.Theme == nil && u.Menu == nil && u.Capacity == nil
}

// UserUpdate carries a partial profile update.
type UserUpdate struct {
	Name       *string
	EmailOptIn *bool
}

// BookingFilter narrows Ledger.List.
type BookingFilter struct {
	DayID            string
	IncludeCancelled bool
}

// DayBookings is one entry of the admin by-day view.
type DayBookings struct {
	Day      Day           `json:"day"`
	Bookings []BookingView `json:"bookings"`
}

// BookingView is a booking enriched with the owner's display fields.
type BookingView struct {
	Booking
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// ─── HTTP payloads ───────────────────────────────────────────────────────────

// CreateBookingRequest is the payload for booking or moving to a day.
type CreateBookingRequest struct {
	DayID string `json:"day_id" validate:"required"`
}

// AdminBookingRequest books a day on behalf of a user identified by email.
type AdminBookingRequest struct {
	Email   string `json:"email" validate:"required,email"`
	DayID   string `json:"day_id" validate:"required"`
	Confirm bool   `json:"confirm"`
}

// AdminMoveRequest moves a user's booking to another day.
type AdminMoveRequest struct {
	DayID   string `json:"day_id" validate:"required"`
	Confirm bool   `json:"confirm"`
}

// CreateDayRequest is the admin payload for adding a day.
type CreateDayRequest struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date" validate:"required"`
	Theme    string    `json:"theme" validate:"required,max=200"`
	Menu     string    `json:"menu" validate:"max=2000"`
	Capacity int       `json:"capacity" validate:"omitempty,min=1,max=100000"`
	Confirm  bool      `json:"confirm"`
}

// UpdateDayRequest is the admin payload for editing a day.
type UpdateDayRequest struct {
	Date     *time.Time `json:"date"`
	Theme    *string    `json:"theme" validate:"omitempty,max=200"`
	Menu     *string    `json:"menu" validate:"omitempty,max=2000"`
	Capacity *int       `json:"capacity" validate:"omitempty,min=1,max=100000"`
	Confirm  bool       `json:"confirm"`
}

// FestivalRequest is the admin payload for festival settings.
type FestivalRequest struct {
	Name           string    `json:"name" validate:"required,max=200"`
	Location       string    `json:"location" validate:"max=500"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required"`
	Price          float64   `json:"price" validate:"gte=0"`
	CapacityPerDay int       `json:"capacity_per_day" validate:"required,min=1,max=100000"`
	Confirm        bool      `json:"confirm"`
}

// UpdateProfileRequest edits the caller's own profile.
type UpdateProfileRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=200"`
	EmailOptIn *bool   `json:"email_opt_in"`
}

// GoogleLoginRequest carries a Google ID token.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error       string `json:"error"`
	Confirmable bool   `json:"confirmable,omitempty"`
}
