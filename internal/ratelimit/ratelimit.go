// Package ratelimit throttles requests per client, keyed by user id when
// authenticated and by remote address otherwise.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kooshamoradpour/G5-TechStore/config"
	"github.com/kooshamoradpour/G5-TechStore/internal/auth"
	"github.com/rs/zerolog"
)

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) Decision
	Close() error
}

// New builds the limiter named by cfg.Backend. It returns nil, nil when
// rate limiting is off.
func New(ctx context.Context, cfg config.RateLimitConfig, logger zerolog.Logger) (Limiter, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "off", "none":
		return nil, nil
	case "", "memory":
		return NewMemoryLimiter(cfg.RequestsPerSecond, cfg.Burst), nil
	case "redis":
		return NewRedisLimiter(ctx, cfg.Redis, windowLimit(cfg), cfg.Window, logger)
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

// windowLimit converts the token bucket settings into a fixed window
// allowance.
func windowLimit(cfg config.RateLimitConfig) int {
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	limit := int(math.Ceil(cfg.RequestsPerSecond * window.Seconds()))
	if limit < cfg.Burst {
		limit = cfg.Burst
	}
	return limit
}

// Middleware rejects requests over the limit with 429. onReject, if not
// nil, is called with the key class ("user" or "ip") of each rejection.
func Middleware(limiter Limiter, onReject func(class string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			decision := limiter.Allow(r.Context(), key)
			if decision.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			}
			if !decision.Allowed {
				if onReject != nil {
					onReject(keyClass(key))
				}
				retry := int(math.Ceil(decision.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
					"code":  "RATE_LIMITED",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey must run after the authentication middleware to see the user.
func ClientKey(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return "user:" + id.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

func keyClass(key string) string {
	if idx := strings.IndexByte(key, ':'); idx > 0 {
		return key[:idx]
	}
	return "unknown"
}
