// Package auth resolves bearer credentials into the principal that owns notes.
//
// Credential issuance belongs to an external auth collaborator; Issue exists
// so the server can mint tokens for development and tests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/laatu08/Offline-Note-App/internal/errs"
)

// Leeway tolerated on exp/nbf checks.
const Leeway = 30 * time.Second

// Issue creates a signed HS256 JWT whose subject is userID.
func Issue(key []byte, userID uuid.UUID, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	return signed, exp, err
}

// Verifier checks HS256 tokens signed with a shared key.
type Verifier struct {
	key []byte
}

// NewVerifier returns a Verifier for key.
func NewVerifier(key []byte) *Verifier { return &Verifier{key: key} }

// UserID verifies tok and returns its subject as a UUID.
// All failures wrap errs.ErrUnauthorized.
func (v *Verifier) UserID(tok string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	}, jwt.WithLeeway(Leeway), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}
	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return id, nil
}

// BearerToken returns the token from the first "Bearer <token>" value.
func BearerToken(values ...string) (string, error) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			if t := strings.TrimSpace(v[7:]); t != "" {
				return t, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no bearer token", errs.ErrUnauthorized)
}

// Subject reads the subject of tok without verifying the signature.
// Clients use it to learn their own user id from a stored token.
func Subject(tok string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("parse token: %w", err)
	}
	return uuid.FromString(claims.Subject)
}
