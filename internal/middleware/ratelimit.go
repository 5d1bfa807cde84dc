package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type bucket struct {
	count int
	until time.Time
}

// RateLimit allows limit requests per client IP in each fixed window of length per.
// The key is c.ClientIP(), so forwarding headers only count when the engine
// trusts the peer that sent them (see gin.Engine.SetTrustedProxies).
func RateLimit(limit int, per time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*bucket)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		b, ok := buckets[ip]
		if !ok || now.After(b.until) {
			// Drop expired windows so the map does not grow with every client ever seen
			for k, old := range buckets {
				if now.After(old.until) {
					delete(buckets, k)
				}
			}
			b = &bucket{until: now.Add(per)}
			buckets[ip] = b
		}
		if b.count >= limit {
			mu.Unlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many requests, try again later"})
			return
		}
		b.count++
		mu.Unlock()
		c.Next()
	}
}
