package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/baechuer/taskflow/internal/domain"
	"github.com/baechuer/taskflow/internal/infrastructure/redis"
	"github.com/baechuer/taskflow/internal/logger"
)

type RateLimiter interface {
	AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error)
}

// FixedWindowConfig defines the configuration for a fixed-window rate limit.
type FixedWindowConfig struct {
	RouteKey string
	Limit    int
	Window   time.Duration
}

// RateLimitFixedWindow limits requests per user (or per client IP before
// authentication) using a shared counter, so the limit holds across replicas.
// A nil limiter or a limiter failure lets the request through.
func RateLimitFixedWindow(limiter RateLimiter, cfg FixedWindowConfig, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.RouteKey == "" {
		cfg.RouteKey = "unknown"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || cfg.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			bucket := windowBucket(time.Now(), cfg.Window)
			key := fmt.Sprintf("rl:%s:%s:%d", cfg.RouteKey, userOrIP(r), bucket)

			dec, err := limiter.AllowFixedWindow(r.Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				logger.WithCtx(r.Context()).Warn().Err(err).Str("route", cfg.RouteKey).Msg("rate_limiter_unavailable")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			if !dec.Allowed {
				if dec.RetryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(dec.RetryAfter)))
				}
				writeErr(w, r, domain.ErrRateLimited())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PerUserLimit is an in-process sliding-window limit keyed by the
// authenticated user. It must run after Auth.
func PerUserLimit(limit int, window time.Duration, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return userOrIP(r), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeErr(w, r, domain.ErrRateLimited())
		}),
	)
}

func retrySeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}

func windowBucket(now time.Time, window time.Duration) int64 {
	sec := int64(window.Seconds())
	if sec <= 0 {
		sec = 60
	}
	return now.Unix() / sec
}

// userOrIP prefers the authenticated user id; otherwise falls back to client IP.
func userOrIP(r *http.Request) string {
	if p, ok := PrincipalFromContext(r.Context()); ok {
		return "u:" + p.UserID
	}
	return "ip:" + clientIP(r)
}

// clientIP reads RemoteAddr only; chi's RealIP middleware rewrites it from
// trusted proxy headers upstream.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
