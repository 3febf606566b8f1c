package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// UserStore is the identity store behind login and profile edits.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
	UpdateProfile(ctx context.Context, id string, upd model.UserUpdate, now time.Time) (*model.User, error)
}

// IDTokenVerifier validates a third-party ID token.
type IDTokenVerifier interface {
	Verify(raw string) (*GoogleIdentity, error)
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    string
	Email     string
	IsAdmin   bool
	TokenID   string
	ExpiresAt time.Time
}

// Service handles login, logout and bearer authentication.
type Service struct {
	users  UserStore
	tokens *TokenManager
	google IDTokenVerifier
	log    *slog.Logger
	now    func() time.Time
}

// NewService builds the auth service. google may be nil, in which case Google
// login is rejected.
func NewService(users UserStore, tokens *TokenManager, google IDTokenVerifier, log *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		google: google,
		log:    log,
		now:    time.Now,
	}
}

// Authenticate verifies a bearer token and loads the caller. Admin rights are
// read from the user record, not from the token.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*Identity, error) {
	if bearer == "" {
		return nil, fmt.Errorf("%w: missing bearer token", model.ErrUnauthenticated)
	}
	claims, err := s.tokens.Verify(ctx, bearer)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, fmt.Errorf("%w: unknown user", model.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return &Identity{
		UserID:    u.ID,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// LoginWithGoogle exchanges a Google ID token for an access token, creating
// the user on first sign-in.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*model.LoginResponse, error) {
	if s.google == nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthenticated, errGoogleDisabled)
	}
	gid, err := s.google.Verify(idToken)
	if err != nil {
		return nil, err
	}

	u, err := s.findOrCreate(ctx, gid)
	if err != nil {
		return nil, err
	}

	token, _, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}

	s.log.LogAttrs(ctx, slog.LevelInfo, "user logged in",
		slog.String("user_id", u.ID),
		slog.Bool("is_admin", u.IsAdmin),
	)
	return &model.LoginResponse{AccessToken: token, TokenType: "bearer", User: *u}, nil
}

func (s *Service) findOrCreate(ctx context.Context, gid *GoogleIdentity) (*model.User, error) {
	u, err := s.users.GetByGoogleID(ctx, gid.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// Accounts provisioned ahead of time (seeded admins) match on email.
	u, err = s.users.GetByEmail(ctx, gid.Email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	name := gid.Name
	if name == "" {
		name = "Unknown"
	}
	now := s.now().UTC()
	u = &model.User{
		ID:         uuid.NewString(),
		GoogleID:   gid.Subject,
		Email:      gid.Email,
		Name:       name,
		EmailOptIn: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.LogAttrs(ctx, slog.LevelInfo, "user created", slog.String("user_id", u.ID))
	return u, nil
}

// Logout revokes the caller's token. It reports whether revocation took
// effect; without a revocation store the call is only acknowledged.
func (s *Service) Logout(ctx context.Context, id *Identity) (bool, error) {
	return s.tokens.Revoke(ctx, id.TokenID, id.ExpiresAt)
}

// Profile returns the caller's user record.
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile edits the caller's name and e-mail preference.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.User, error) {
	upd := model.UserUpdate{Name: req.Name, EmailOptIn: req.EmailOptIn}
	if upd.Name == nil && upd.EmailOptIn == nil {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}
	return s.users.UpdateProfile(ctx, userID, upd, s.now().UTC())
}

type identityKey struct{}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, if any.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
