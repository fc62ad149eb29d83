// Package middleware holds the HTTP middleware shared by every route:
// request logging and per-source-IP rate limiting (spec.md §4.9).
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds the two named caps spec.md §4.9 calls out: one for
// the frequently-polled data endpoints and a tighter one for static-ish
// endpoints.
type RateLimitConfig struct {
	DataPerMinute   int
	StaticPerMinute int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

// DefaultRateLimitConfig matches spec.md's documented defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		DataPerMinute:   60,
		StaticPerMinute: 30,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

type limiterEntry struct {
	limiter      *rate.Limiter
	lastSeenNano atomic.Int64
}

// RateLimiter manages one token-bucket limiter per (source IP, class).
type RateLimiter struct {
	config   RateLimitConfig
	limiters sync.Map // map[string]*limiterEntry
	stopCh   chan struct{}
}

// NewRateLimiter starts a limiter with a background eviction sweep.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{config: config, stopCh: make(chan struct{})}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.limiters.Range(func(key, value any) bool {
				entry := value.(*limiterEntry)
				if now.Sub(time.Unix(0, entry.lastSeenNano.Load())) > rl.config.MaxAge {
					rl.limiters.Delete(key)
				}
				return true
			})
		case <-rl.stopCh:
			return
		}
	}
}

// Stop ends the background eviction sweep.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *RateLimiter) getLimiter(key string, perMinute int) *rate.Limiter {
	now := time.Now().UnixNano()
	if val, ok := rl.limiters.Load(key); ok {
		entry := val.(*limiterEntry)
		entry.lastSeenNano.Store(now)
		return entry.limiter
	}
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	entry := &limiterEntry{limiter: limiter}
	entry.lastSeenNano.Store(now)
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

// Allow checks the named class's limiter for the given source IP.
func (rl *RateLimiter) Allow(ip, class string, perMinute int) bool {
	return rl.getLimiter(class+":"+ip, perMinute).Allow()
}

// sourceIP extracts the client address for rate-limit keying, taking the
// right-most X-Forwarded-For entry when a reverse proxy is present
// (spec.md §4.9) since that is the hop closest to this server and hardest
// for a client to spoof through the proxy.
func sourceIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[len(parts)-1])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// RateLimit builds middleware enforcing perMinute requests/minute per
// source IP under the given class name ("data" or "static").
func RateLimit(rl *RateLimiter, class string, perMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := sourceIP(r)
			if !rl.Allow(ip, class, perMinute) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
