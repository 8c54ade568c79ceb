package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
	"github.com/oleg-sazonov/auth-verification-service/internal/core/port"
	"github.com/oleg-sazonov/auth-verification-service/internal/repository"
)

const uniqueViolation = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var accountColumns = []string{
	"id",
	"email",
	"display_name",
	"password_hash",
	"is_verified",
	"last_login_at",
	"verification_token_hash",
	"verification_token_expires_at",
	"reset_token_hash",
	"reset_token_expires_at",
	"created_at",
	"updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

var _ port.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository constructs a repository backed by any executor that
// satisfies pgExecutor. Tests pass a pgxmock pool.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	repo := &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Create inserts a new account row. A clash on the unique email index is
// reported as repository.ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	query := r.builder.Insert("auth.accounts").
		Columns(
			"id",
			"email",
			"display_name",
			"password_hash",
			"is_verified",
			"verification_token_hash",
			"verification_token_expires_at",
			"created_at",
			"updated_at",
		).
		Values(
			account.ID,
			account.Email,
			account.DisplayName,
			account.PasswordHash,
			account.IsVerified,
			account.VerificationTokenHash,
			account.VerificationTokenExpiresAt,
			account.CreatedAt,
			account.UpdatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by identifier.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account by id: %w", err)
	}
	return account, nil
}

// GetByEmail retrieves an account by its lowercased address.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account by email: %w", err)
	}
	return account, nil
}

// ConsumeVerificationToken marks the matching account verified and clears the
// token pair in one conditional update. Wrong, expired, and already consumed
// tokens all fall through to repository.ErrNotFound, so concurrent
// submissions of the same code admit exactly one winner.
func (r *AccountRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("is_verified", true).
		Set("verification_token_hash", nil).
		Set("verification_token_expires_at", nil).
		Set("updated_at", now).
		Where(squirrel.Eq{"verification_token_hash": tokenHash}).
		Where(squirrel.Gt{"verification_token_expires_at": now}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consume verification token sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	return account, nil
}

// SetResetToken installs a reset token pair, replacing any pending one.
func (r *AccountRepository) SetResetToken(ctx context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("reset_token_hash", tokenHash).
		Set("reset_token_expires_at", expiresAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set reset token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ConsumeResetToken replaces the password and clears the reset token pair in
// one conditional update, so the token is single-use even under concurrent
// submissions.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("password_hash", newPasswordHash).
		Set("reset_token_hash", nil).
		Set("reset_token_expires_at", nil).
		Set("updated_at", now).
		Where(squirrel.Eq{"reset_token_hash": tokenHash}).
		Where(squirrel.Gt{"reset_token_expires_at": now}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consume reset token sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return account, nil
}

// TouchLastLogin records a successful login timestamp.
func (r *AccountRepository) TouchLastLogin(ctx context.Context, accountID string, at time.Time) error {
	stmt, args, err := r.builder.
		Update("auth.accounts").
		Set("last_login_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": accountID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch last login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func columnList() string {
	list := accountColumns[0]
	for _, col := range accountColumns[1:] {
		list += ", " + col
	}
	return list
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&account.PasswordHash,
		&account.IsVerified,
		&account.LastLoginAt,
		&account.VerificationTokenHash,
		&account.VerificationTokenExpiresAt,
		&account.ResetTokenHash,
		&account.ResetTokenExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
