package domain

import "time"

// Account mirrors the persisted representation in the accounts table.
//
// The verification and reset token pairs are stored as hashes; the raw values
// only ever travel to the owner of the mailbox. Either both halves of a pair
// are set or both are nil.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	IsVerified   bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	VerificationTokenHash      *string
	VerificationTokenExpiresAt *time.Time

	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
}

// HasPendingVerification reports whether a verification token pair is set.
func (a Account) HasPendingVerification() bool {
	return a.VerificationTokenHash != nil && a.VerificationTokenExpiresAt != nil
}

// HasPendingReset reports whether a reset token pair is set.
func (a Account) HasPendingReset() bool {
	return a.ResetTokenHash != nil && a.ResetTokenExpiresAt != nil
}

// SetVerificationToken installs a fresh verification pair, replacing any
// pending one.
func (a *Account) SetVerificationToken(hash string, expiresAt time.Time) {
	hashCopy := hash
	expiryCopy := expiresAt
	a.VerificationTokenHash = &hashCopy
	a.VerificationTokenExpiresAt = &expiryCopy
}

// ClearVerificationToken drops both halves of the verification pair.
func (a *Account) ClearVerificationToken() {
	a.VerificationTokenHash = nil
	a.VerificationTokenExpiresAt = nil
}

// SetResetToken installs a fresh reset pair, replacing any pending one.
func (a *Account) SetResetToken(hash string, expiresAt time.Time) {
	hashCopy := hash
	expiryCopy := expiresAt
	a.ResetTokenHash = &hashCopy
	a.ResetTokenExpiresAt = &expiryCopy
}

// ClearResetToken drops both halves of the reset pair.
func (a *Account) ClearResetToken() {
	a.ResetTokenHash = nil
	a.ResetTokenExpiresAt = nil
}

// VerificationExpired reports whether the pending verification token, if any,
// has elapsed its validity window.
func (a Account) VerificationExpired(at time.Time) bool {
	if a.VerificationTokenExpiresAt == nil {
		return true
	}
	return !a.VerificationTokenExpiresAt.After(at)
}

// ResetExpired reports whether the pending reset token, if any, has elapsed
// its validity window.
func (a Account) ResetExpired(at time.Time) bool {
	if a.ResetTokenExpiresAt == nil {
		return true
	}
	return !a.ResetTokenExpiresAt.After(at)
}
