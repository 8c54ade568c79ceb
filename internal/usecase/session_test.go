package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/oleg-sazonov/auth-verification-service/internal/infra/security"
)

const testSessionSecret = "0123456789abcdef0123456789abcdef"

func newSessionCodec(t *testing.T, ttl time.Duration) *security.SessionTokenCodec {
	t.Helper()
	codec, err := security.NewSessionTokenCodec(testSessionSecret, "auth-test", ttl)
	if err != nil {
		t.Fatalf("NewSessionTokenCodec: %v", err)
	}
	return codec
}

func TestSessionValidateRoundTrip(t *testing.T) {
	codec := newSessionCodec(t, time.Hour)
	service := NewSessionService(codec)

	token, err := codec.Issue("acct-1", "Jane")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.AccountID != "acct-1" {
		t.Fatalf("expected account id acct-1, got %s", claims.AccountID)
	}
	if claims.DisplayName != "Jane" {
		t.Fatalf("expected display name Jane, got %s", claims.DisplayName)
	}
}

func TestSessionValidateMissing(t *testing.T) {
	service := NewSessionService(newSessionCodec(t, time.Hour))

	if _, err := service.Validate(""); !errors.Is(err, ErrSessionTokenMissing) {
		t.Fatalf("expected ErrSessionTokenMissing, got %v", err)
	}
}

func TestSessionValidateTampered(t *testing.T) {
	codec := newSessionCodec(t, time.Hour)
	service := NewSessionService(codec)

	token, err := codec.Issue("acct-1", "Jane")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := service.Validate(tampered); !errors.Is(err, ErrSessionTokenInvalid) {
		t.Fatalf("expected ErrSessionTokenInvalid, got %v", err)
	}
}

func TestSessionValidateWrongSecret(t *testing.T) {
	issuing := newSessionCodec(t, time.Hour)

	other, err := security.NewSessionTokenCodec("ffffffffffffffffffffffffffffffff", "auth-test", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionTokenCodec: %v", err)
	}
	service := NewSessionService(other)

	token, err := issuing.Issue("acct-1", "Jane")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := service.Validate(token); !errors.Is(err, ErrSessionTokenInvalid) {
		t.Fatalf("expected ErrSessionTokenInvalid, got %v", err)
	}
}

func TestSessionValidateExpired(t *testing.T) {
	base := time.Now().UTC()
	codec := newSessionCodec(t, time.Minute).WithClock(func() time.Time {
		return base.Add(-2 * time.Minute)
	})
	service := NewSessionService(codec)

	token, err := codec.Issue("acct-1", "Jane")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := service.Validate(token); !errors.Is(err, ErrSessionTokenExpired) {
		t.Fatalf("expected ErrSessionTokenExpired, got %v", err)
	}
}
