package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit returns per-client-IP rate limiting middleware using token
// buckets: each client gets a bucket that fills at `rps` tokens/sec up to
// `burst`. Each request consumes one token; an empty bucket means 429.
//
// sync.Mutex protects the limiter map from concurrent goroutine access —
// a shared map with simple read/write is cleaner with a mutex than a
// channel.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		// ClientIP respects X-Forwarded-For from trusted proxies.
		ip := c.ClientIP()

		mu.Lock()
		limiter, exists := limiters[ip]
		if !exists {
			limiter = rate.NewLimiter(rate.Limit(rps), burst)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
