package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a per-client sliding-window limiter
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // Maximum requests per window
	window   time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter; stale clients are pruned every window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for now := range ticker.C {
		rl.mu.Lock()
		for client, times := range rl.requests {
			if recent := rl.prune(times, now); len(recent) == 0 {
				delete(rl.requests, client)
			} else {
				rl.requests[client] = recent
			}
		}
		rl.mu.Unlock()
	}
}

// prune drops timestamps that fell out of the window, reusing the slice
func (rl *RateLimiter) prune(times []time.Time, now time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if now.Sub(t) < rl.window {
			kept = append(kept, t)
		}
	}
	return kept
}

// Allow records a request from client and reports whether it is within the limit.
// When refused, the returned duration is how long until the oldest request expires.
func (rl *RateLimiter) Allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	recent := rl.prune(rl.requests[client], now)
	if len(recent) >= rl.limit {
		rl.requests[client] = recent
		return false, rl.window - now.Sub(recent[0])
	}

	rl.requests[client] = append(recent, now)
	return true, 0
}

// RateLimit middleware limits requests per client IP
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		ok, wait := limiter.Allow(c.ClientIP())
		if !ok {
			seconds := int(wait.Round(time.Second) / time.Second)
			c.Header("Retry-After", strconv.Itoa(max(1, seconds)))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
