package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

// SessionClaims augments registered claims with the account context carried
// by a session token.
type SessionClaims struct {
	AccountID   string `json:"aid"`
	DisplayName string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokenCodec issues and verifies self-contained HS256 session tokens.
// Tokens are not persisted; possession of the signing secret is the only
// verification state.
type SessionTokenCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenCodec constructs a codec for the provided secret and TTL.
func NewSessionTokenCodec(secret, issuer string, ttl time.Duration) (*SessionTokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session token ttl must be positive")
	}

	return &SessionTokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock allows tests to override the clock used by the codec.
func (c *SessionTokenCodec) WithClock(clock func() time.Time) *SessionTokenCodec {
	if clock != nil {
		c.now = clock
	}
	return c
}

// TTL returns the validity window applied to issued tokens.
func (c *SessionTokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a session token binding the account id and display name.
func (c *SessionTokenCodec) Issue(accountID, displayName string) (string, error) {
	if accountID == "" {
		return "", errors.New("account id is required")
	}

	now := c.now().UTC()
	claims := SessionClaims{
		AccountID:   accountID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Parse verifies the signature and registered claims of a session token.
// Expiry surfaces as jwt.ErrTokenExpired; everything else malformed or
// tampered surfaces as a generic parse error.
func (c *SessionTokenCodec) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if parsed == nil || !parsed.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	if strings.TrimSpace(claims.AccountID) == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
