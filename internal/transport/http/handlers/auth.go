package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/oleg-sazonov/auth-verification-service/internal/infra/logger"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/middleware"
	"github.com/oleg-sazonov/auth-verification-service/internal/usecase"
)

// SessionCookie configures how the session token is written to the browser.
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
	TTL    time.Duration
}

// AuthHandler serves the account lifecycle endpoints.
type AuthHandler struct {
	accounts *usecase.AccountService
	notifier NotificationDispatcher
	cookie   SessionCookie
	logger   *zap.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts *usecase.AccountService, notifier NotificationDispatcher, cookie SessionCookie, log *zap.Logger) *AuthHandler {
	if notifier == nil {
		notifier = noopDispatcher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{accounts: accounts, notifier: notifier, cookie: cookie, logger: log}
}

// Signup registers a new account and opens a session immediately. The
// verification code travels only through the notification path.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	if err := h.notifier.SendVerificationCode(c.Request.Context(), VerificationNotification{
		Email:       result.Account.Email,
		DisplayName: result.Account.DisplayName,
		Code:        result.VerificationCode,
		ExpiresAt:   result.CodeExpiresAt,
	}); err != nil {
		h.logger.Warn("verification dispatch failed",
			zap.String("email", appLogger.MaskEmail(result.Account.Email)),
			zap.Error(err))
	}

	h.setSessionCookie(c, result.SessionToken)
	c.JSON(http.StatusCreated, AuthResponse{
		Message: "account created",
		Account: NewAccountSummary(result.Account),
	})
}

// Login authenticates with email and password.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	h.setSessionCookie(c, result.SessionToken)
	c.JSON(http.StatusOK, AuthResponse{
		Message: "logged in",
		Account: NewAccountSummary(result.Account),
	})
}

// Logout clears the session cookie. Tokens are self-contained, so there is
// nothing to revoke server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	_ = h.accounts.Logout(c.Request.Context())
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// VerifyEmail consumes the emailed 6-digit code.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	account, err := h.accounts.VerifyEmail(c.Request.Context(), req.Token())
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidToken, Status: http.StatusBadRequest, Message: "invalid or expired verification code"},
		}, http.StatusInternalServerError, "verification failed")
		return
	}

	if err := h.notifier.SendWelcome(c.Request.Context(), WelcomeNotification{
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}); err != nil {
		h.logger.Warn("welcome dispatch failed",
			zap.String("email", appLogger.MaskEmail(account.Email)),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, AuthResponse{
		Message: "email verified",
		Account: NewAccountSummary(*account),
	})
}

// ForgotPassword issues a reset token. An unknown address gets the same
// acknowledgement as a known one to avoid account enumeration.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	ack := MessageResponse{Message: "if the address is registered, a reset link has been sent"}

	request, err := h.accounts.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, usecase.ErrAccountNotFound) {
			c.JSON(http.StatusOK, ack)
			return
		}
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "password reset request failed")
		return
	}

	if err := h.notifier.SendPasswordReset(c.Request.Context(), PasswordResetNotification{
		Email:     request.Email,
		Token:     request.ResetToken,
		ExpiresAt: request.ExpiresAt,
	}); err != nil {
		h.logger.Warn("reset dispatch failed",
			zap.String("email", appLogger.MaskEmail(request.Email)),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, ack)
}

// ResetPassword consumes a reset token from the URL path and replaces the
// password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	account, err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidToken, Status: http.StatusNotFound, Message: "invalid or expired reset token"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	if err := h.notifier.SendResetConfirmation(c.Request.Context(), ResetConfirmationNotification{
		Email: account.Email,
	}); err != nil {
		h.logger.Warn("reset confirmation dispatch failed",
			zap.String("email", appLogger.MaskEmail(account.Email)),
			zap.Error(err))
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// CheckAuth resolves the authenticated session to live account data.
func (h *AuthHandler) CheckAuth(c *gin.Context) {
	accountID := middleware.AccountID(c)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.accounts.CurrentAccount(c.Request.Context(), accountID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			// the session outlived the account row
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "account lookup failed")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Message: "authenticated",
		Account: NewAccountSummary(*account),
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.TTL.Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
}
