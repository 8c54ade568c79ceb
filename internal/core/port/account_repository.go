package port

import (
	"context"
	"time"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
//
// The consume operations are single atomic statements: a caller that loses a
// race observes not-found rather than a partially cleared token pair.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// ConsumeVerificationToken marks the matching account verified and clears
	// the verification pair in one statement. Matching requires the stored
	// hash to equal tokenHash and the expiry to be after now.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error)

	// SetResetToken overwrites the reset pair for the account; any previously
	// pending reset token becomes invalid.
	SetResetToken(ctx context.Context, accountID string, tokenHash string, expiresAt time.Time) error

	// ConsumeResetToken replaces the password hash and clears the reset pair
	// in one statement, with the same hash+expiry matching rule.
	ConsumeResetToken(ctx context.Context, tokenHash string, newPasswordHash string, now time.Time) (*domain.Account, error)

	TouchLastLogin(ctx context.Context, accountID string, at time.Time) error
}
