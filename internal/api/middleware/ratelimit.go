package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/airwaves-fm/stationsearch/pkg/response"
)

// clientLimiter is one client's token bucket and when it was last used
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps a token bucket per client IP
type RateLimiter struct {
	mu              sync.Mutex
	clients         map[string]*clientLimiter
	rate            rate.Limit
	burst           int
	cleanupInterval time.Duration
	idleTimeout     time.Duration
	now             func() time.Time
}

// NewRateLimiter creates a limiter refilling requestsPerMinute tokens a
// minute with room for burst. Idle clients are swept until ctx is done.
func NewRateLimiter(ctx context.Context, requestsPerMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		clients:         make(map[string]*clientLimiter),
		rate:            rate.Limit(float64(requestsPerMinute) / 60),
		burst:           burst,
		cleanupInterval: 3 * time.Minute,
		idleTimeout:     5 * time.Minute,
		now:             time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

// cleanup removes idle clients periodically
func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for ip, c := range rl.clients {
		if now.Sub(c.lastSeen) > rl.idleTimeout {
			delete(rl.clients, ip)
		}
	}
}

// Allow takes a token from the client's bucket
func (rl *RateLimiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[clientIP]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[clientIP] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// retryAfter is the whole seconds until one token is back
func (rl *RateLimiter) retryAfter() int {
	return max(int(1/float64(rl.rate)), 1)
}

// RateLimitMiddleware creates rate limiting middleware. A non-positive rate disables it.
func RateLimitMiddleware(ctx context.Context, requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := NewRateLimiter(ctx, requestsPerMinute, burst)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(limiter.retryAfter()))
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}
