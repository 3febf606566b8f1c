package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// dateValue decodes either a calendar date ("2024-11-03", the seed file
// format) or a full RFC 3339 timestamp.
type dateValue time.Time

func (d *dateValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = dateValue(t)
	return nil
}

// ParseDate accepts "2006-01-02" (read as midnight UTC) or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t, nil
}

func decodeStrict(b []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// UnmarshalJSON accepts date-only or RFC 3339 values for date.
func (r *CreateDayRequest) UnmarshalJSON(b []byte) error {
	type plain CreateDayRequest
	aux := struct {
		*plain
		Date dateValue `json:"date"`
	}{plain: (*plain)(r)}
	if err := decodeStrict(b, &aux); err != nil {
		return err
	}
	r.Date = time.Time(aux.Date)
	return nil
}

// UnmarshalJSON accepts date-only or RFC 3339 values for date.
func (r *UpdateDayRequest) UnmarshalJSON(b []byte) error {
	type plain UpdateDayRequest
	aux := struct {
		*plain
		Date *dateValue `json:"date"`
	}{plain: (*plain)(r)}
	if err := decodeStrict(b, &aux); err != nil {
		return err
	}
	r.Date = nil
	if aux.Date != nil {
		t := time.Time(*aux.Date)
		r.Date = &t
	}
	return nil
}

// UnmarshalJSON accepts date-only or RFC 3339 values for start_date and end_date.
func (r *FestivalRequest) UnmarshalJSON(b []byte) error {
	type plain FestivalRequest
	aux := struct {
		*plain
		StartDate dateValue `json:"start_date"`
		EndDate   dateValue `json:"end_date"`
	}{plain: (*plain)(r)}
	if err := decodeStrict(b, &aux); err != nil {
		return err
	}
	r.StartDate = time.Time(aux.StartDate)
	r.EndDate = time.Time(aux.EndDate)
	return nil
}
