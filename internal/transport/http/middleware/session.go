package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oleg-sazonov/auth-verification-service/internal/usecase"
)

const (
	// AccountIDKey is the gin context key holding the authenticated account id.
	AccountIDKey = "account_id"
	// DisplayNameKey is the gin context key holding the session display name.
	DisplayNameKey = "display_name"

	bearerPrefix = "Bearer "
)

// SessionAuth validates the session token from the HTTP-only cookie, falling
// back to the Authorization header for non-browser clients. Requests without
// a valid session are rejected before the handler runs.
func SessionAuth(sessions *usecase.SessionService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractSessionToken(c, cookieName)

		claims, err := sessions.Validate(token)
		if err != nil {
			// missing credentials are 401; presented-but-rejected ones are 403
			status := http.StatusUnauthorized
			message := "authentication required"
			switch {
			case errors.Is(err, usecase.ErrSessionTokenExpired):
				status = http.StatusForbidden
				message = "session expired"
			case errors.Is(err, usecase.ErrSessionTokenInvalid):
				status = http.StatusForbidden
				message = "invalid session"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		c.Set(DisplayNameKey, claims.DisplayName)
		c.Next()
	}
}

// ExtractSessionToken pulls the raw session token from cookie or bearer
// header, cookie first. Empty when neither is present.
func ExtractSessionToken(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}

	return ""
}

// AccountID returns the authenticated account id set by SessionAuth.
func AccountID(c *gin.Context) string {
	if id, ok := c.Get(AccountIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
