package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
)

// ErrorResponse is the generic error payload with a request id for support.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error payload tagged with the request id.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	requestID := c.Writer.Header().Get("X-Request-ID")
	return ErrorResponse{Error: message, RequestID: requestID}
}

// MessageResponse is a simple acknowledgement payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary is the outward view of an account. Credential and token
// material never appear here.
type AccountSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"name"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewAccountSummary projects a domain account into its API view.
func NewAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		IsVerified:  account.IsVerified,
		LastLoginAt: account.LastLoginAt,
		CreatedAt:   account.CreatedAt,
	}
}

// SignupRequest is the payload for account registration.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest is the payload for credential login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// VerifyEmailRequest carries the emailed 6-digit code. Clients send it as
// verificationToken; code is accepted as a fallback alias.
type VerifyEmailRequest struct {
	VerificationToken string `json:"verificationToken"`
	Code              string `json:"code"`
}

// Token returns whichever field the client populated.
func (r VerifyEmailRequest) Token() string {
	if r.VerificationToken != "" {
		return r.VerificationToken
	}
	return r.Code
}

// ForgotPasswordRequest initiates a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest carries the replacement password; the token rides the
// URL path.
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by signup, login, verify, and check-auth.
type AuthResponse struct {
	Message string         `json:"message"`
	Account AccountSummary `json:"account"`
}
