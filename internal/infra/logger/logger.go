package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

// RequestIDKey is the context key under which the per-request identifier is
// stored by the transport layer.
const RequestIDKey contextKey = "request_id"

var (
	log  *zap.Logger
	once sync.Once
)

// Init builds the process-wide logger. level accepts zap's textual levels
// ("debug", "info", "warn", "error"); anything else falls back to info.
// encoding is "json" or "console".
func Init(level, encoding string) error {
	var initErr error
	once.Do(func() {
		lvl, err := zapcore.ParseLevel(strings.ToLower(level))
		if err != nil {
			lvl = zapcore.InfoLevel
		}

		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(lvl)
		if encoding == "console" {
			cfg = zap.NewDevelopmentConfig()
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		log, initErr = cfg.Build(zap.AddCallerSkip(0))
	})
	return initErr
}

// L returns the process-wide logger, initializing a no-op logger if Init was
// never called. Tests rely on this default being safe.
func L() *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

// Sync flushes buffered log entries. Safe to call on shutdown paths.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// FromContext returns L() enriched with the request identifier when present.
func FromContext(ctx context.Context) *zap.Logger {
	l := L()
	if ctx == nil {
		return l
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		l = l.With(zap.String("request_id", id))
	}
	return l
}

// MaskEmail hides the local part of an address, keeping the first rune and
// the domain so log lines stay correlatable without exposing PII.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return MaskString(email)
	}
	local, domain := email[:at], email[at:]
	if len(local) == 1 {
		return "*" + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-1) + domain
}

// MaskIP keeps the first octet of an IPv4 address, or the first segment of an
// IPv6 address, masking the rest.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}
	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			return parts[0] + ".*.*.*"
		}
	}
	if idx := strings.IndexByte(ip, ':'); idx > 0 {
		return ip[:idx] + ":****"
	}
	return MaskString(ip)
}

// MaskString replaces all but the first character of a value.
func MaskString(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return "*"
	default:
		return value[:1] + strings.Repeat("*", len(value)-1)
	}
}
