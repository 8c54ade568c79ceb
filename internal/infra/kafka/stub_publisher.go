package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
	"github.com/oleg-sazonov/auth-verification-service/internal/core/port"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when the
// broker is disabled in development environments.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

// NewStubPublisher constructs a log-only event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.logger.Info("event stub: account registered",
		zap.String("account_id", event.AccountID),
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.Time("code_expires_at", event.CodeExpiresAt),
	)
	return nil
}

func (p *StubPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	p.logger.Info("event stub: email verified",
		zap.String("account_id", event.AccountID),
		zap.Time("verified_at", event.VerifiedAt),
	)
	return nil
}

func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.logger.Info("event stub: password reset requested",
		zap.String("account_id", event.AccountID),
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.Time("expires_at", event.ExpiresAt),
	)
	return nil
}

func (p *StubPublisher) PublishPasswordResetCompleted(_ context.Context, event domain.PasswordResetCompletedEvent) error {
	p.logger.Info("event stub: password reset completed",
		zap.String("account_id", event.AccountID),
		zap.Time("completed_at", event.CompletedAt),
	)
	return nil
}
