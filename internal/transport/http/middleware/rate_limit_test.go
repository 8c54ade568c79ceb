package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisrepo "github.com/oleg-sazonov/auth-verification-service/internal/repository/redis"
	"github.com/oleg-sazonov/auth-verification-service/internal/transport/http/middleware"
)

func newLimitedRouter(t *testing.T, limit int, window time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := redisrepo.NewRateLimitStore(client, "ratelimit")
	limiter := middleware.NewRateLimiter(store, zap.NewNop())

	router := gin.New()
	router.POST("/login",
		limiter.Limit(middleware.RateLimitRule{Name: "login", Limit: limit, Window: window}),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return router
}

func post(router *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "198.51.100.7:40000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	router := newLimitedRouter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		rec := post(router)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Fatalf("expected rate limit headers")
		}
	}
}

func TestRateLimiterThrottlesOverLimit(t *testing.T) {
	router := newLimitedRouter(t, 2, time.Minute)

	post(router)
	post(router)

	rec := post(router)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("expected problem payload content type")
	}
}
