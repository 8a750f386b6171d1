// Package middleware holds the echo middleware shared by the API routes.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	svcerrors "github.com/showme-app/showme/server/internal/errors"
)

// RateLimiter tracks a token-bucket limiter per client key.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter

	perMinute int
	burst     int
}

// NewRateLimiter creates a rate limiter allowing perMinute requests per
// client with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &RateLimiter{
		limits:    make(map[string]*rate.Limiter),
		perMinute: perMinute,
		burst:     burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow reports whether a request from the key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects over-limit requests with 429 before they reach the
// handler. Clients are keyed the same way sessions are.
func (rl *RateLimiter) Middleware(keyFunc func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(keyFunc(c)) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded, try again shortly",
					"code":  string(svcerrors.ErrCodeRateLimitExceeded),
				})
			}
			return next(c)
		}
	}
}
