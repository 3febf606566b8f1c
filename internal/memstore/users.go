package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// GetByID returns a copy of the user or ErrUserNotFound.
func (s *Store) GetByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetByEmail matches email case-insensitively.
func (s *Store) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrUserNotFound
}

// GetByGoogleID looks a user up by their Google subject.
func (s *Store) GetByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if googleID != "" && u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrUserNotFound
}

// CreateUser stores a new user. Emails are unique, case-insensitively.
func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("%w: email %s already registered", model.ErrValidation, u.Email)
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// UpdateProfile applies the non-nil fields of upd.
func (s *Store) UpdateProfile(_ context.Context, id string, upd model.UserUpdate, now time.Time) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.EmailOptIn != nil {
		u.EmailOptIn = *upd.EmailOptIn
	}
	u.UpdatedAt = now
	cp := *u
	return &cp, nil
}

// ListUsers returns all users ordered by name.
func (s *Store) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}
