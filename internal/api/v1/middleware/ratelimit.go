package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/desktopathlete/athlete/internal/config"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/desktopathlete/athlete/pkg/logger"
	"github.com/desktopathlete/athlete/pkg/ratelimit"
)

// Limit caps hits per client IP for one route group. Routes and websocket
// frames sharing a Limit draw from the same window.
type Limit struct {
	key     string
	cfg     config.RateLimitConfig
	limiter *ratelimit.Limiter
}

func NewLimit(limitKey string) *Limit {
	cfg := config.GetRateLimitConfig(limitKey)
	return &Limit{
		key:     limitKey,
		cfg:     cfg,
		limiter: ratelimit.NewLimiter(cfg.Window, cfg.MaxHits),
	}
}

// Allow records a hit for r's client and reports whether it fits, with the
// wait until it would when it does not.
func (l *Limit) Allow(r *http.Request) (bool, time.Duration) {
	if l == nil || !l.cfg.Enabled {
		return true, 0
	}

	ip := httpext.ClientIP(r)
	ok, retryAfter := l.limiter.Reserve(ip)
	if !ok {
		logger.Warn(logger.MIDDLEWARE, "Rate limit exceeded for %s on %s", ip, l.key)
	}
	return ok, retryAfter
}

func (l *Limit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := l.Allow(r)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			httpext.JsonError(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit caps requests per client IP for the route group named limitKey
func RateLimit(limitKey string) func(http.Handler) http.Handler {
	return NewLimit(limitKey).Middleware
}
