package port

import (
	"context"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
)

// EventPublisher publishes account lifecycle events to the message bus. The
// mail worker consumes these to deliver verification, welcome, reset, and
// confirmation emails.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error
}
