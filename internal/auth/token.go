// Package auth issues and verifies bearer tokens and handles Google sign-in.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/festival-booking/internal/model"
)

// Claims is the payload of an access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoker Revoker
	now     func() time.Time
}

// NewTokenManager builds a TokenManager. A nil revoker disables revocation.
func NewTokenManager(secret string, ttl time.Duration, revoker Revoker) *TokenManager {
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		now:     time.Now,
	}
}

// Issue signs a token for u.
func (m *TokenManager) Issue(u *model.User) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses raw, checks signature and expiry, and rejects revoked tokens.
func (m *TokenManager) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", model.ErrUnauthenticated)
	}
	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: incomplete claims", model.ErrUnauthenticated)
	}

	if m.revoker != nil {
		revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token revoked", model.ErrUnauthenticated)
		}
	}
	return claims, nil
}

// Revoke invalidates the token identified by jti until it would have expired.
// It reports false when no revoker is configured.
func (m *TokenManager) Revoke(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	if m.revoker == nil {
		return false, nil
	}
	if jti == "" {
		return false, errors.New("revoke: empty token id")
	}
	ttl := expiresAt.Sub(m.now())
	if ttl <= 0 {
		return true, nil
	}
	if err := m.revoker.Revoke(ctx, jti, ttl); err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return true, nil
}
