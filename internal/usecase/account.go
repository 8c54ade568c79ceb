package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
	"github.com/oleg-sazonov/auth-verification-service/internal/core/port"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/logger"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/security"
	"github.com/oleg-sazonov/auth-verification-service/internal/repository"
)

const (
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour

	maxEmailLength       = 50
	minDisplayNameLength = 2
	maxDisplayNameLength = 30
	minPasswordLength    = 6
)

var (
	// ErrInvalidCredentials indicates the email or password is incorrect.
	// The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates a verification code or reset token that is
	// wrong, expired, or already consumed. The cases are deliberately
	// indistinguishable.
	ErrInvalidToken = errors.New("token invalid or expired")
	// ErrEmailTaken indicates a registration collided with an existing account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrAccountNotFound indicates the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")
)

// ValidationError reports malformed input the caller can correct and retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// AccountService owns every account state transition: registration, email
// verification, login, logout, and the password reset flow. All durable state
// lives in the repository; the service holds no cross-request state.
type AccountService struct {
	accounts        port.AccountRepository
	events          port.EventPublisher
	sessions        *security.SessionTokenCodec
	log             *zap.Logger
	now             func() time.Time
	verificationTTL time.Duration
	resetTTL        time.Duration
}

// NewAccountService constructs an AccountService.
func NewAccountService(accounts port.AccountRepository, events port.EventPublisher, sessions *security.SessionTokenCodec, log *zap.Logger) *AccountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountService{
		accounts:        accounts,
		events:          events,
		sessions:        sessions,
		log:             log,
		now:             time.Now,
		verificationTTL: defaultVerificationTTL,
		resetTTL:        defaultResetTTL,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *AccountService) WithClock(clock func() time.Time) *AccountService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithTokenTTLs overrides the verification and reset validity windows.
func (s *AccountService) WithTokenTTLs(verification, reset time.Duration) *AccountService {
	if verification > 0 {
		s.verificationTTL = verification
	}
	if reset > 0 {
		s.resetTTL = reset
	}
	return s
}

// RegisterResult carries the artifacts of a successful registration. The raw
// verification code is returned for notification dispatch only; the store
// holds its hash.
type RegisterResult struct {
	Account          domain.Account
	SessionToken     string
	VerificationCode string
	CodeExpiresAt    time.Time
}

// Register creates an unverified account with a pending verification code and
// issues a session token immediately. Sessions before verification are
// permitted; gating is a route-layer policy decision.
func (s *AccountService) Register(ctx context.Context, email, password, displayName string) (*RegisterResult, error) {
	email = normalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	if err := validateRegistration(email, password, displayName); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := security.GenerateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.verificationTTL)

	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	account.SetVerificationToken(security.HashToken(code), expiresAt)

	// The unique email index is the authoritative guard; the lookup above
	// only provides the friendly fast path.
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	token, err := s.sessions.Issue(account.ID, account.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	s.publishAccountRegistered(ctx, account, code, expiresAt)

	return &RegisterResult{
		Account:          redact(account),
		SessionToken:     token,
		VerificationCode: code,
		CodeExpiresAt:    expiresAt,
	}, nil
}

// VerifyEmail consumes a pending verification code and marks the account
// verified. A wrong, expired, or already consumed code all fail identically.
func (s *AccountService) VerifyEmail(ctx context.Context, code string) (*domain.Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, &ValidationError{Field: "verificationToken", Reason: "is required"}
	}

	account, err := s.accounts.ConsumeVerificationToken(ctx, security.HashToken(code), s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("consume verification token: %w", err)
	}

	s.publishEmailVerified(ctx, *account)

	redacted := redact(*account)
	return &redacted, nil
}

// LoginResult bundles the authenticated account and its session token.
type LoginResult struct {
	Account      domain.Account
	SessionToken string
}

// Login authenticates by email and password. Unknown email and wrong password
// produce the same error. Verification state does not gate login.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Reason: "is required"}
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	account.LastLoginAt = &now

	token, err := s.sessions.Issue(account.ID, account.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	return &LoginResult{Account: redact(*account), SessionToken: token}, nil
}

// Logout is stateless: session tokens are self-contained and nothing is held
// server-side. The transport layer discards the client cookie.
func (s *AccountService) Logout(_ context.Context) error {
	return nil
}

// ResetRequest carries the artifacts of a password reset initiation. The raw
// token is for notification dispatch only.
type ResetRequest struct {
	AccountID  string
	Email      string
	ResetToken string
	ExpiresAt  time.Time
}

// ForgotPassword installs a fresh reset token pair, overwriting any pending
// one. Only the newest token is honored. The transport layer may mask the
// not-found case to avoid account enumeration.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, &ValidationError{Field: "email", Reason: "is required"}
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	raw, err := security.GenerateResetToken()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.resetTTL)

	if err := s.accounts.SetResetToken(ctx, account.ID, security.HashToken(raw), expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	request := &ResetRequest{
		AccountID:  account.ID,
		Email:      account.Email,
		ResetToken: raw,
		ExpiresAt:  expiresAt,
	}

	s.publishResetRequested(ctx, *account, request, now)

	return request, nil
}

// ResetPassword consumes a reset token and replaces the password. The token
// is single-use: the consuming update clears it, so a concurrent or repeated
// submission observes not-found and fails uniformly.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) (*domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &ValidationError{Field: "token", Reason: "is required"}
	}
	if len(newPassword) < minPasswordLength {
		return nil, &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.accounts.ConsumeResetToken(ctx, security.HashToken(token), passwordHash, s.now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}

	s.publishResetCompleted(ctx, *account)

	redacted := redact(*account)
	return &redacted, nil
}

// CurrentAccount resolves a validated session back to live account data.
func (s *AccountService) CurrentAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, &ValidationError{Field: "accountId", Reason: "is required"}
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	redacted := redact(*account)
	return &redacted, nil
}

func validateRegistration(email, password, displayName string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "is required"}
	}
	if len(email) > maxEmailLength {
		return &ValidationError{Field: "email", Reason: fmt.Sprintf("must be at most %d characters", maxEmailLength)}
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	if nameLen := len(displayName); nameLen < minDisplayNameLength || nameLen > maxDisplayNameLength {
		return &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("must be between %d and %d characters", minDisplayNameLength, maxDisplayNameLength),
		}
	}
	return nil
}

// Case policy is fixed at creation: addresses are lowercased once at the
// boundary and every lookup uses the same form.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// redact strips the password hash and token material from outward-facing
// account copies.
func redact(account domain.Account) domain.Account {
	account.PasswordHash = ""
	account.ClearVerificationToken()
	account.ClearResetToken()
	return account
}

// Side effects are dispatched after the state change is committed; a publish
// failure is logged and never unwinds the transition.

func (s *AccountService) publishAccountRegistered(ctx context.Context, account domain.Account, code string, expiresAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.AccountRegisteredEvent{
		EventID:          uuid.NewString(),
		AccountID:        account.ID,
		Email:            account.Email,
		DisplayName:      account.DisplayName,
		VerificationCode: code,
		CodeExpiresAt:    expiresAt,
		RegisteredAt:     account.CreatedAt,
	}

	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.log.Warn("publish account registered failed",
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err))
	}
}

func (s *AccountService) publishEmailVerified(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}

	event := domain.EmailVerifiedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		VerifiedAt:  s.now().UTC(),
	}

	if err := s.events.PublishEmailVerified(ctx, event); err != nil {
		s.log.Warn("publish email verified failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
}

func (s *AccountService) publishResetRequested(ctx context.Context, account domain.Account, request *ResetRequest, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordResetRequestedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		Email:       account.Email,
		ResetToken:  request.ResetToken,
		ExpiresAt:   request.ExpiresAt,
		RequestedAt: at,
	}

	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.log.Warn("publish password reset requested failed",
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err))
	}
}

func (s *AccountService) publishResetCompleted(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}

	event := domain.PasswordResetCompletedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		Email:       account.Email,
		CompletedAt: s.now().UTC(),
	}

	if err := s.events.PublishPasswordResetCompleted(ctx, event); err != nil {
		s.log.Warn("publish password reset completed failed",
			zap.String("account_id", account.ID),
			zap.Error(err))
	}
}
