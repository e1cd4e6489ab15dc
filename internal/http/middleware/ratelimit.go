package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	last  time.Time
	count int
}

// memLimiter is the in-process fixed window used when Redis is not configured.
type memLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

// allow counts one request for key and reports whether it fits in the window.
func (l *memLimiter) allow(key string, maxRequests int, window time.Duration, now time.Time) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.last) > window {
		l.clients[key] = &clientInfo{last: now, count: 1}
		return 1, true
	}
	ci.count++
	return ci.count, ci.count <= maxRequests
}

// sweep forgets windows that ended before now.
func (l *memLimiter) sweep(window time.Duration, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, ci := range l.clients {
		if now.Sub(ci.last) > window {
			delete(l.clients, k)
		}
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := &memLimiter{clients: make(map[string]*clientInfo)}
	var lastSweep time.Time
	var sweepMu sync.Mutex

	return func(c *gin.Context) {
		now := time.Now()
		sweepMu.Lock()
		if now.Sub(lastSweep) > window {
			lastSweep = now
			sweepMu.Unlock()
			l.sweep(window, now)
		} else {
			sweepMu.Unlock()
		}

		if _, ok := l.allow(rateKey(c), maxRequests, window, now); !ok {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// RateLimit picks the shared Redis limiter when it is available and the
// in-process one otherwise.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if RedisEnabled() {
		return RedisRateLimit(maxRequests, window)
	}
	return SimpleRateLimit(maxRequests, window)
}
