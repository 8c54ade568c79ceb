package usecase

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oleg-sazonov/auth-verification-service/internal/infra/security"
)

var (
	// ErrSessionTokenMissing indicates no session token was presented.
	ErrSessionTokenMissing = errors.New("session token missing")
	// ErrSessionTokenInvalid indicates a malformed or badly signed token.
	ErrSessionTokenInvalid = errors.New("session token invalid")
	// ErrSessionTokenExpired indicates an expired but otherwise valid token.
	ErrSessionTokenExpired = errors.New("session token expired")
)

// SessionService validates self-contained session tokens. There is no
// server-side session state; the signed claims are the session.
type SessionService struct {
	codec *security.SessionTokenCodec
}

// NewSessionService constructs a SessionService over the given codec.
func NewSessionService(codec *security.SessionTokenCodec) *SessionService {
	return &SessionService{codec: codec}
}

// Validate parses and verifies a session token, returning its claims.
func (s *SessionService) Validate(token string) (*security.SessionClaims, error) {
	if token == "" {
		return nil, ErrSessionTokenMissing
	}

	claims, err := s.codec.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionTokenExpired
		}
		return nil, ErrSessionTokenInvalid
	}

	return claims, nil
}
