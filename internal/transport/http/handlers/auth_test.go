package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/config"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/security"
	"github.com/oleg-sazonov/auth-verification-service/internal/repository"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/handlers"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/routes"
	"github.com/oleg-sazonov/auth-verification-service/internal/usecase"
)

const cookieName = "session_token"

type memoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *memoryAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return repository.ErrDuplicateEmail
		}
	}
	copy := account
	r.accounts[account.ID] = &copy
	return nil
}

func (r *memoryAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *account
	return &copy, nil
}

func (r *memoryAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			copy := *account
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) ConsumeVerificationToken(_ context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.VerificationTokenHash == nil || *account.VerificationTokenHash != tokenHash {
			continue
		}
		if !account.VerificationTokenExpiresAt.After(now) {
			return nil, repository.ErrNotFound
		}
		account.IsVerified = true
		account.ClearVerificationToken()
		copy := *account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) SetResetToken(_ context.Context, accountID, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	account.SetResetToken(tokenHash, expiresAt)
	return nil
}

func (r *memoryAccountRepo) ConsumeResetToken(_ context.Context, tokenHash, newPasswordHash string, now time.Time) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.ResetTokenHash == nil || *account.ResetTokenHash != tokenHash {
			continue
		}
		if !account.ResetTokenExpiresAt.After(now) {
			return nil, repository.ErrNotFound
		}
		account.PasswordHash = newPasswordHash
		account.ClearResetToken()
		copy := *account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccountRepo) TouchLastLogin(_ context.Context, accountID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	account.LastLoginAt = &at
	return nil
}

// captureNotifier records dispatched codes and tokens so tests can complete
// the flows a real client would finish from their inbox.
type captureNotifier struct {
	mu               sync.Mutex
	verificationCode string
	resetToken       string
}

func (n *captureNotifier) SendVerificationCode(_ context.Context, payload handlers.VerificationNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verificationCode = payload.Code
	return nil
}

func (n *captureNotifier) SendWelcome(context.Context, handlers.WelcomeNotification) error {
	return nil
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, payload handlers.PasswordResetNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetToken = payload.Token
	return nil
}

func (n *captureNotifier) SendResetConfirmation(context.Context, handlers.ResetConfirmationNotification) error {
	return nil
}

type testEnv struct {
	router   *gin.Engine
	repo     *memoryAccountRepo
	notifier *captureNotifier
}

func newTestRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := security.NewSessionTokenCodec("0123456789abcdef0123456789abcdef", "auth-test", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionTokenCodec: %v", err)
	}

	repo := newMemoryAccountRepo()
	notifier := &captureNotifier{}

	accounts := usecase.NewAccountService(repo, nil, codec, zap.NewNop())
	sessions := usecase.NewSessionService(codec)

	cfg := &config.Config{}
	cfg.Session.CookieName = cookieName

	authHandler := handlers.NewAuthHandler(accounts, notifier, handlers.SessionCookie{
		Name: cookieName,
		TTL:  time.Hour,
	}, zap.NewNop())

	router := routes.New(routes.Dependencies{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Auth:     authHandler,
		Health:   handlers.NewHealthHandler(),
		Sessions: sessions,
	})

	return &testEnv{router: router, repo: repo, notifier: notifier}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == cookieName {
			return cookie
		}
	}
	t.Fatalf("expected %s cookie in response", cookieName)
	return nil
}

func TestSignupSetsSessionCookie(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	rec := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	cookie := sessionCookie(t, rec)
	if cookie.Value == "" {
		t.Fatalf("expected non-empty session token")
	}
	if !cookie.HttpOnly {
		t.Fatalf("expected HTTP-only cookie")
	}

	var resp handlers.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Account.IsVerified {
		t.Fatalf("expected account to start unverified")
	}
	if resp.Account.Email != "jane@example.com" {
		t.Fatalf("unexpected email %q", resp.Account.Email)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response must not leak credential material: %s", rec.Body.String())
	}
}

func TestSignupDuplicateEmailConflict(t *testing.T) {
	env := newTestRouter(t)
	router := env.router
	body := `{"email":"jane@example.com","password":"longenough1","name":"Jane"}`

	if rec := doJSON(t, router, http.MethodPost, "/api/auth/signup", body, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first signup: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodPost, "/api/auth/signup", body, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
}

func TestSignupValidationError(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	rec := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"tiny","name":"Jane"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rec.Code)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login",
		`{"email":"jane@example.com","password":"wrongpassword"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCheckAuthLifecycle(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	// no session
	if rec := doJSON(t, router, http.MethodGet, "/api/auth/check-auth", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}

	signup := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)
	cookie := sessionCookie(t, signup)

	rec := doJSON(t, router, http.MethodGet, "/api/auth/check-auth", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with session, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp handlers.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Account.Email != "jane@example.com" {
		t.Fatalf("unexpected account in check-auth: %+v", resp.Account)
	}
}

func TestCheckAuthBearerFallback(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	signup := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)
	token := sessionCookie(t, signup).Value

	req := httptest.NewRequest(http.MethodGet, "/api/auth/check-auth", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	signup := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)
	cookie := sessionCookie(t, signup)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/logout", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	cleared := sessionCookie(t, rec)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected cookie cleared, got value=%q maxAge=%d", cleared.Value, cleared.MaxAge)
	}
}

func TestVerifyEmailWrongCode(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)

	wrong := "999999"
	if env.notifier.verificationCode == wrong {
		wrong = "000000"
	}

	rec := doJSON(t, router, http.MethodPost, "/api/auth/verify-email", `{"code":"`+wrong+`"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong code, got %d", rec.Code)
	}
}

func TestVerifyEmailAcceptsVerificationTokenField(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)

	code := env.notifier.verificationCode
	if code == "" {
		t.Fatalf("expected verification code dispatched")
	}

	rec := doJSON(t, router, http.MethodPost, "/api/auth/verify-email",
		`{"verificationToken":"`+code+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying with verificationToken field, got %d: %s", rec.Code, rec.Body.String())
	}

	// token is single-use
	rec = doJSON(t, router, http.MethodPost, "/api/auth/verify-email",
		`{"verificationToken":"`+code+`"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 replaying the code, got %d", rec.Code)
	}
}

func TestCheckAuthAccountGone(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	signup := doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"longenough1","name":"Jane"}`, nil)
	cookie := sessionCookie(t, signup)

	env.repo.mu.Lock()
	for id := range env.repo.accounts {
		delete(env.repo.accounts, id)
	}
	env.repo.mu.Unlock()

	rec := doJSON(t, router, http.MethodGet, "/api/auth/check-auth", "", cookie)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted account, got %d", rec.Code)
	}
}

func TestForgotPasswordMasksUnknownEmail(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	rec := doJSON(t, router, http.MethodPost, "/api/auth/forgot-password",
		`{"email":"ghost@example.com"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown address, got %d", rec.Code)
	}
}

func TestResetPasswordBadToken(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	rec := doJSON(t, router, http.MethodPost, "/api/auth/reset-password/deadbeef",
		`{"password":"brandnewpass1"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bad token, got %d", rec.Code)
	}
}

func TestResetPasswordStatusesDistinguishCauses(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	doJSON(t, router, http.MethodPost, "/api/auth/signup",
		`{"email":"jane@example.com","password":"oldpassword1","name":"Jane"}`, nil)
	doJSON(t, router, http.MethodPost, "/api/auth/forgot-password",
		`{"email":"jane@example.com"}`, nil)

	token := env.notifier.resetToken
	if token == "" {
		t.Fatalf("expected reset token dispatched")
	}

	// short password is the client's fault: 400, and the token survives
	rec := doJSON(t, router, http.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":"tiny"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":"brandnewpass1"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid reset, got %d: %s", rec.Code, rec.Body.String())
	}

	// consumed token: 404
	rec = doJSON(t, router, http.MethodPost, "/api/auth/reset-password/"+token,
		`{"password":"anotherpass1"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for consumed token, got %d", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestRouter(t)
	router := env.router

	if rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: expected 200, got %d", rec.Code)
	}
}
