package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/infra/config"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/handlers"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/middleware"
	"github.com/oleg-sazonov/auth-verification-service/internal/usecase"
)

// Dependencies aggregates everything the router wires together.
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Auth        *handlers.AuthHandler
	Health      *handlers.HealthHandler
	Sessions    *usecase.SessionService
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
}

// New assembles the gin engine with the full middleware chain and API routes.
func New(deps Dependencies) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(deps.Logger))
	if deps.Config != nil {
		engine.Use(middleware.CORS(deps.Config.HTTP.AllowedOrigins))
	}
	if deps.Metrics != nil {
		engine.Use(deps.Metrics.Handler())
	}

	engine.GET("/healthz", deps.Health.Status)
	engine.GET("/readyz", deps.Health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limit := func(name string, rule config.RateLimitRule) gin.HandlerFunc {
		if deps.RateLimiter == nil || deps.Config == nil || !deps.Config.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return deps.RateLimiter.Limit(middleware.RateLimitRule{
			Name:   name,
			Limit:  rule.Limit,
			Window: rule.Window,
		})
	}

	var rl config.RateLimitConfig
	if deps.Config != nil {
		rl = deps.Config.RateLimit
	}

	auth := engine.Group("/api/auth")
	{
		auth.POST("/signup", limit("signup", rl.Signup), deps.Auth.Signup)
		auth.POST("/login", limit("login", rl.Login), deps.Auth.Login)
		auth.POST("/logout", deps.Auth.Logout)
		auth.POST("/verify-email", limit("verify", rl.Verify), deps.Auth.VerifyEmail)
		auth.POST("/forgot-password", limit("forgot", rl.Forgot), deps.Auth.ForgotPassword)
		auth.POST("/reset-password/:token", limit("reset", rl.Reset), deps.Auth.ResetPassword)

		cookieName := "session_token"
		if deps.Config != nil && deps.Config.Session.CookieName != "" {
			cookieName = deps.Config.Session.CookieName
		}
		auth.GET("/check-auth", middleware.SessionAuth(deps.Sessions, cookieName), deps.Auth.CheckAuth)
	}

	return engine
}
