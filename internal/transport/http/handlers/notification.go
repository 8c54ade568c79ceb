package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/infra/logger"
)

// NotificationDispatcher fans out transactional mail to downstream notifiers.
// The Kafka pipeline is the production path; these hooks cover local setups
// where no mail worker is running.
type NotificationDispatcher interface {
	SendVerificationCode(ctx context.Context, payload VerificationNotification) error
	SendWelcome(ctx context.Context, payload WelcomeNotification) error
	SendPasswordReset(ctx context.Context, payload PasswordResetNotification) error
	SendResetConfirmation(ctx context.Context, payload ResetConfirmationNotification) error
}

// VerificationNotification carries the emailed 6-digit code.
type VerificationNotification struct {
	Email       string
	DisplayName string
	Code        string
	ExpiresAt   time.Time
}

// WelcomeNotification is sent once after successful verification.
type WelcomeNotification struct {
	Email       string
	DisplayName string
}

// PasswordResetNotification carries the reset link token.
type PasswordResetNotification struct {
	Email     string
	Token     string
	ExpiresAt time.Time
}

// ResetConfirmationNotification confirms a completed password change.
type ResetConfirmationNotification struct {
	Email string
}

type noopDispatcher struct{}

func (noopDispatcher) SendVerificationCode(context.Context, VerificationNotification) error {
	return nil
}

func (noopDispatcher) SendWelcome(context.Context, WelcomeNotification) error {
	return nil
}

func (noopDispatcher) SendPasswordReset(context.Context, PasswordResetNotification) error {
	return nil
}

func (noopDispatcher) SendResetConfirmation(context.Context, ResetConfirmationNotification) error {
	return nil
}

// LoggingNotificationDispatcher records dispatch events without delivering
// anything. Raw codes and tokens are logged only here, for development use.
type LoggingNotificationDispatcher struct {
	logger *zap.Logger
}

// NewLoggingNotificationDispatcher constructs a dispatcher backed by
// structured logging, or a no-op one when no logger is supplied.
func NewLoggingNotificationDispatcher(log *zap.Logger) NotificationDispatcher {
	if log == nil {
		return noopDispatcher{}
	}
	return &LoggingNotificationDispatcher{logger: log}
}

func (d *LoggingNotificationDispatcher) SendVerificationCode(_ context.Context, payload VerificationNotification) error {
	d.logger.Info("dispatch verification code",
		zap.String("email", logger.MaskEmail(payload.Email)),
		zap.String("dev_code", payload.Code),
		zap.Time("expires_at", payload.ExpiresAt),
	)
	return nil
}

func (d *LoggingNotificationDispatcher) SendWelcome(_ context.Context, payload WelcomeNotification) error {
	d.logger.Info("dispatch welcome mail",
		zap.String("email", logger.MaskEmail(payload.Email)),
		zap.String("name", payload.DisplayName),
	)
	return nil
}

func (d *LoggingNotificationDispatcher) SendPasswordReset(_ context.Context, payload PasswordResetNotification) error {
	d.logger.Info("dispatch password reset link",
		zap.String("email", logger.MaskEmail(payload.Email)),
		zap.String("dev_token", payload.Token),
		zap.Time("expires_at", payload.ExpiresAt),
	)
	return nil
}

func (d *LoggingNotificationDispatcher) SendResetConfirmation(_ context.Context, payload ResetConfirmationNotification) error {
	d.logger.Info("dispatch reset confirmation",
		zap.String("email", logger.MaskEmail(payload.Email)),
	)
	return nil
}
