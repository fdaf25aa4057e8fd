package middlewares

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyedLimiters holds one token bucket per key for a single middleware instance.
type keyedLimiters struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func (k *keyedLimiters) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	limiter, exists := k.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = limiter
	}
	return limiter
}

// RateLimitMiddleware allows r requests per second per key, with bursts of b.
// Every call owns its buckets, so the limiters stacked on nested route groups
// are enforced independently.
func RateLimitMiddleware(r rate.Limit, b int, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	buckets := &keyedLimiters{
		limit:    r,
		burst:    b,
		limiters: make(map[string]*rate.Limiter),
	}

	return func(c *gin.Context) {
		if !buckets.get(keyFunc(c)).Allow() {
			c.Header("Retry-After", retryAfterSeconds(r))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down :("})
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(r rate.Limit) string {
	if r <= 0 || r == rate.Inf {
		return "1"
	}
	// The epsilon absorbs float error from rate.Every.
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/float64(r)-1e-9))))
}
