package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/port"
)

const (
	rateLimitProblemType  = "https://auth.example.com/errors/rate-limit-exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"
)

// RateLimitRule bounds attempts for one endpoint scope, keyed by client IP.
type RateLimitRule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// ProblemDetails is an RFC 9457 compatible payload for throttled requests.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
}

// RateLimiter enforces per-endpoint sliding-window limits.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// NewRateLimiter builds a reusable limiter over the given store.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock allows injection of a custom clock for tests.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// Limit returns a middleware enforcing the rule for the wrapped route.
// A store outage fails open: the request is served and the incident logged.
func (rl *RateLimiter) Limit(rule RateLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		decision, err := rl.store.Allow(c.Request.Context(), rule.Name, ip, rule.Limit, rule.Window, rl.now())
		if err != nil {
			rl.logger.Warn("rate limit check failed",
				zap.String("rule", rule.Name),
				zap.Error(err))
			c.Next()
			return
		}

		headers := c.Writer.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if decision.Allowed {
			c.Next()
			return
		}

		seconds := int(math.Ceil(decision.RetryAfter.Seconds()))
		if seconds < 0 {
			seconds = 0
		}
		headers.Set("Retry-After", strconv.Itoa(seconds))

		instance := c.FullPath()
		if instance == "" {
			instance = c.Request.URL.Path
		}

		c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
			Type:       rateLimitProblemType,
			Title:      rateLimitProblemTitle,
			Status:     http.StatusTooManyRequests,
			Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
			Instance:   instance,
			RetryAfter: seconds,
		})
	}
}
