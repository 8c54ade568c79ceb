package security

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	encoded, err := HashPassword("longenough1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(encoded, "argon2id$") {
		t.Fatalf("expected argon2id prefix, got %q", encoded)
	}

	ok, err := VerifyPassword("longenough1", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify against its own hash")
	}
}

func TestVerifyPasswordMismatch(t *testing.T) {
	encoded, err := HashPassword("longenough1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("different1", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch to verify false")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	first, err := HashPassword("longenough1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("longenough1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct digests for the same password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("whatever1", "not-a-hash"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestConfigureArgon2RejectsInvalid(t *testing.T) {
	if err := ConfigureArgon2(Argon2Config{}); err == nil {
		t.Fatalf("expected zero config to be rejected")
	}
}
