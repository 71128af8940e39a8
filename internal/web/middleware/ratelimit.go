package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/class-attendance/internal/constants"
	"github.com/kozaktomas/class-attendance/internal/logging"
	"golang.org/x/time/rate"
)

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP. Buckets idle for
// longer than it takes them to refill are dropped.
type RateLimiter struct {
	mu        sync.Mutex
	bucket    map[string]*clientBucket
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter allows perSecond requests per client with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	burst = max(burst, 1)
	// a dropped bucket restarts full, so keep it at least until it would be full anyway
	idle := constants.RateLimitIdle
	if perSecond > 0 {
		idle = max(idle, time.Duration(float64(burst)/perSecond*float64(time.Second)))
	}
	return &RateLimiter{
		bucket: make(map[string]*clientBucket),
		rate:   rate.Limit(perSecond),
		burst:  burst,
		idle:   idle,
		now:    time.Now,
	}
}

// limiterFor returns the bucket of ip, creating it on first use.
func (l *RateLimiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	b, ok := l.bucket[ip]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(l.rate, l.burst)}
		l.bucket[ip] = b
	}
	b.lastSeen = now
	return b.lim
}

// sweep drops idle buckets. Caller holds mu.
func (l *RateLimiter) sweep(now time.Time) {
	for ip, b := range l.bucket {
		if now.Sub(b.lastSeen) >= l.idle {
			delete(l.bucket, ip)
		}
	}
	l.lastSweep = now
}

// clients returns the number of tracked client buckets.
func (l *RateLimiter) clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.bucket)
}

// clientIP strips the port from RemoteAddr. chi's RealIP has already applied
// X-Forwarded-For when it runs earlier in the chain.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Limit rejects requests over the client's budget with 429.
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.limiterFor(ip).Allow() {
			logging.Warn(logging.Fields{"ip": ip, "path": r.URL.Path}, "too many requests")
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
