package domain

import "time"

// Mail template identifiers understood by the downstream mail worker.
const (
	MailTemplateVerification      = "email_verification"
	MailTemplateWelcome           = "welcome"
	MailTemplatePasswordReset     = "password_reset"
	MailTemplateResetConfirmation = "password_reset_confirmation"
)

// AccountRegisteredEvent is published after a new account row is committed.
// It carries the raw verification code so the mail pipeline can deliver it;
// the service itself only persists the hash.
type AccountRegisteredEvent struct {
	EventID          string
	AccountID        string
	Email            string
	DisplayName      string
	VerificationCode string
	CodeExpiresAt    time.Time
	RegisteredAt     time.Time
	Metadata         map[string]any
}

// EmailVerifiedEvent is published after an account transitions to verified.
type EmailVerifiedEvent struct {
	EventID     string
	AccountID   string
	Email       string
	DisplayName string
	VerifiedAt  time.Time
	Metadata    map[string]any
}

// PasswordResetRequestedEvent is published after a reset token pair is
// persisted. Carries the raw token for link construction downstream.
type PasswordResetRequestedEvent struct {
	EventID     string
	AccountID   string
	Email       string
	ResetToken  string
	ExpiresAt   time.Time
	RequestedAt time.Time
	IPAddress   *string
	Metadata    map[string]any
}

// PasswordResetCompletedEvent is published after a password is replaced via a
// reset token.
type PasswordResetCompletedEvent struct {
	EventID     string
	AccountID   string
	Email       string
	CompletedAt time.Time
	Metadata    map[string]any
}
