package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// idleTTL is how long the bucket of a silent client is kept.
const idleTTL = 10 * time.Minute

// clientLimiter applies one token bucket per client ip and evicts idle buckets now and then.
type clientLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	byClient map[string]*bucket
	hits     uint64
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (l *clientLimiter) allow(client string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byClient[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byClient[client] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-idleTTL)
		for k, v := range l.byClient {
			if v.lastSeen.Before(cutoff) {
				delete(l.byClient, k)
			}
		}
	}
	return allowed
}

// RateLimit allows each client ip rps requests per second with the given burst. Requests above
// the limit are answered with 429.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if burst < 1 {
		burst = 1
	}
	l := &clientLimiter{limit: rate.Limit(rps), burst: burst, byClient: make(map[string]*bucket)}
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorMessage{Message: "too many requests"})
			return
		}
		c.Next()
	}
}
