package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/port"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/config"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/database"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/kafka"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/logger"
	redisinfra "github.com/oleg-sazonov/auth-verification-service/internal/infra/redis"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/security"
	pgrepo "github.com/oleg-sazonov/auth-verification-service/internal/repository/postgres"
	redisrepo "github.com/oleg-sazonov/auth-verification-service/internal/repository/redis"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/handlers"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/middleware"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/routes"
	"github.com/oleg-sazonov/auth-verification-service/internal/usecase"
)

// App owns the service's long-lived resources and their shutdown order.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafka.Producer
	server   *http.Server
}

// New wires the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := logger.Init(cfg.App.LogLevel, cfg.App.LogEncoding); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log := logger.L()

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.MemoryKiB,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, err
	}

	app := &App{cfg: cfg, log: log, pool: pool, redis: redisClient}

	var publisher port.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			app.closeResources()
			return nil, err
		}
		app.producer = producer
		publisher = kafka.NewEventPublisher(producer, cfg.App, log)
	} else {
		log.Info("kafka disabled, using stub event publisher")
		publisher = kafka.NewStubPublisher(log)
	}

	codec, err := security.NewSessionTokenCodec(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	if err != nil {
		app.closeResources()
		return nil, err
	}

	accountRepo := pgrepo.NewAccountRepository(pool)
	accountService := usecase.NewAccountService(accountRepo, publisher, codec, log).
		WithTokenTTLs(cfg.Tokens.VerificationTTL, cfg.Tokens.ResetTTL)
	sessionService := usecase.NewSessionService(codec)

	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Unwrap(), "ratelimit")

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Namespace: "auth"})
	if err != nil {
		app.closeResources()
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	authHandler := handlers.NewAuthHandler(accountService,
		handlers.NewLoggingNotificationDispatcher(log),
		handlers.SessionCookie{
			Name:   cfg.Session.CookieName,
			Domain: cfg.Session.CookieDomain,
			Secure: cfg.Session.CookieSecure,
			TTL:    cfg.Session.TTL,
		}, log)

	healthHandler := handlers.NewHealthHandler(
		handlers.WithReadinessCheck("postgres", pool.Ping),
		handlers.WithReadinessCheck("redis", redisClient.HealthCheck),
	)

	engine := routes.New(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Auth:        authHandler,
		Health:      healthHandler,
		Sessions:    sessionService,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:     metrics,
	})

	app.server = &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return app, nil
}

// Run serves HTTP until the context is cancelled, then drains in-flight
// requests and releases resources in reverse dependency order.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.closeResources()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown incomplete", zap.Error(err))
	}

	a.closeResources()
	logger.Sync()
	return nil
}

func (a *App) closeResources() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("close kafka producer", zap.Error(err))
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("close redis client", zap.Error(err))
		}
		a.redis = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}
