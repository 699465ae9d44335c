package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/anc-caregap-server/internal/domain"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu          sync.Mutex
	clients     map[string]*clientLimiter
	idleTTL     time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per client
// with bursts of up to burst requests.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Middleware rejects requests over the client's budget with 429 and a
// RATE_LIMIT_EXCEEDED service error.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(c.ClientIP())
		now := rl.now()

		allowed := limiter.AllowN(now, 1)
		remaining := int(math.Max(0, math.Floor(limiter.TokensAt(now))))
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			retryAfter := rl.retryAfter(limiter.TokensAt(now))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewServiceError(
				domain.CodeRateLimit,
				"rate limit exceeded",
				fmt.Sprintf("retry after %d seconds", retryAfter),
				c.GetString(CorrelationIDKey),
			))
			return
		}
		c.Next()
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastCleanup) > rl.idleTTL {
		for k, cl := range rl.clients {
			if now.Sub(cl.lastSeen) > rl.idleTTL {
				delete(rl.clients, k)
			}
		}
		rl.lastCleanup = now
	}

	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// retryAfter is the whole number of seconds until one token is available.
func (rl *RateLimiter) retryAfter(tokens float64) int {
	if rl.rps <= 0 {
		return 60
	}
	wait := (1 - tokens) / float64(rl.rps)
	return int(math.Max(1, math.Ceil(wait)))
}
