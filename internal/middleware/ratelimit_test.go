package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiterBasicLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{CleanupInterval: time.Minute, MaxAge: time.Minute})
	defer rl.Stop()

	for i := 0; i < 10; i++ {
		if !rl.Allow("1.2.3.4", "data", 10) {
			t.Errorf("request %d should have been allowed", i)
		}
	}
	if rl.Allow("1.2.3.4", "data", 10) {
		t.Error("11th request should have been rate limited")
	}
}

func TestRateLimiterDifferentIPsIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{CleanupInterval: time.Minute, MaxAge: time.Minute})
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		rl.Allow("1.1.1.1", "data", 5)
	}
	if rl.Allow("1.1.1.1", "data", 5) {
		t.Error("1.1.1.1 should be rate limited")
	}
	if !rl.Allow("2.2.2.2", "data", 5) {
		t.Error("2.2.2.2 should not be rate limited")
	}
}

func TestRateLimiterClassesIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{CleanupInterval: time.Minute, MaxAge: time.Minute})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		rl.Allow("1.2.3.4", "data", 3)
	}
	if rl.Allow("1.2.3.4", "data", 3) {
		t.Error("data class should be exhausted")
	}
	if !rl.Allow("1.2.3.4", "static", 3) {
		t.Error("static class should be unaffected by data class usage")
	}
}

func TestRateLimitMiddlewareByRemoteAddr(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{CleanupInterval: time.Minute, MaxAge: time.Minute})
	defer rl.Stop()

	handler := RateLimit(rl, "data", 3)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	allowed, limited := 0, 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		} else if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if allowed != 3 || limited != 7 {
		t.Errorf("allowed=%d limited=%d, want 3/7", allowed, limited)
	}
}

func TestRateLimitMiddlewareUsesRightmostForwardedFor(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{CleanupInterval: time.Minute, MaxAge: time.Minute})
	defer rl.Stop()

	handler := RateLimit(rl, "data", 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req1 := httptest.NewRequest("GET", "/test", nil)
	req1.Header.Set("X-Forwarded-For", "203.0.113.5, 70.41.3.18, 150.172.238.178")
	req1.RemoteAddr = "150.172.238.178:1234"
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)
	if w1.Code != http.StatusOK {
		t.Fatal("first request should be allowed")
	}

	// Same rightmost hop, different spoofed client-facing entries: still limited.
	req2 := httptest.NewRequest("GET", "/test", nil)
	req2.Header.Set("X-Forwarded-For", "9.9.9.9, 70.41.3.18, 150.172.238.178")
	req2.RemoteAddr = "150.172.238.178:1234"
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	if w2.Code != http.StatusTooManyRequests {
		t.Error("second request sharing the rightmost hop should be rate limited")
	}
}

func TestRateLimitMiddlewareResponseHeaders(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{CleanupInterval: time.Minute, MaxAge: time.Minute})
	defer rl.Stop()

	handler := RateLimit(rl, "data", 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest("GET", "/test", nil)
	req2.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req2)

	if w.Code != http.StatusTooManyRequests {
		t.Fatal("second request should be rate limited")
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Error("expected Retry-After header")
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining: 0")
	}
}

func TestRateLimiterConcurrent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{CleanupInterval: time.Minute, MaxAge: time.Minute})
	defer rl.Stop()

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if rl.Allow("concurrent", "data", 100) {
					atomic.AddInt64(&allowed, 1)
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want exactly 100 (burst size)", allowed)
	}
}
