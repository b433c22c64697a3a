// Package session holds the signed-in identity: the bearer token plus the
// user id and role recovered from its claims. It is injected into the HTTP
// layer rather than read from globals, so transport code stays testable.
package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/collabry/collabry-go/pkg/apperr"
)

type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// FromToken recovers identity from the bearer token's claims. The signature
// is not verified here: the backend is the authority, the client only needs
// the identifiers for display and request construction.
func FromToken(raw string) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidArgument, "undecodable bearer token", err)
	}

	s := &Session{Token: raw}
	if sub, err := claims.GetSubject(); err == nil {
		s.UserID = sub
	}
	if s.UserID == "" {
		if id, ok := claims["userId"].(string); ok {
			s.UserID = id
		}
	}
	if role, ok := claims["role"].(string); ok {
		s.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if s.UserID == "" {
		return nil, apperr.InvalidArg("token carries no user id")
	}
	return s, nil
}

// Expired reports whether the token's exp claim has passed. Tokens without
// an exp claim never expire locally; the backend's 401 is the backstop.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
