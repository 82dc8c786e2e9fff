package api

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiterConfig sets the per-client request budget.
type RateLimiterConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// tokenBucket refills at a fixed rate up to its capacity.
type tokenBucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
	mu         sync.Mutex
}

func newTokenBucket(capacity, refillRate float64) *tokenBucket {
	return &tokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		last:       time.Now(),
	}
}

// take refills the bucket, then consumes one token if there is one. It
// returns the tokens left and when the bucket will be full again.
func (tb *tokenBucket) take(now time.Time) (ok bool, remaining int, full time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = min(tb.capacity, tb.tokens+now.Sub(tb.last).Seconds()*tb.refillRate)
	tb.last = now
	if tb.tokens >= 1 {
		tb.tokens--
		ok = true
	}
	full = now
	if missing := tb.capacity - tb.tokens; missing > 0 && tb.refillRate > 0 {
		full = now.Add(time.Duration(missing / tb.refillRate * float64(time.Second)))
	}
	return ok, int(tb.tokens), full
}

func (tb *tokenBucket) idleSince() time.Time {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.last
}

// RateLimiter applies one token bucket per client IP.
type RateLimiter struct {
	buckets    map[string]*tokenBucket
	config     RateLimiterConfig
	cleanupTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
// Stop ends it.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		buckets:    make(map[string]*tokenBucket),
		config:     config,
		cleanupTTL: 5 * time.Minute,
		stop:       make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) bucket(ip string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = newTokenBucket(float64(rl.config.BurstSize), float64(rl.config.RequestsPerMinute)/60.0)
		rl.buckets[ip] = b
	}
	return b
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.buckets {
				if now.Sub(b.idleSince()) > rl.cleanupTTL {
					delete(rl.buckets, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow consumes one request of ip's budget.
func (rl *RateLimiter) Allow(ip string) bool {
	ok, _, _ := rl.bucket(ip).take(time.Now())
	return ok
}

// Middleware rejects clients over budget with 429 and reports the budget
// in X-RateLimit-* headers.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, full := rl.bucket(clientIP(r)).take(time.Now())

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.RequestsPerMinute))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(full.Unix(), 10))

		if !ok {
			retryAfter := int(time.Until(full).Seconds()) + 1
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the leftmost valid X-Forwarded-For address, then
// X-Real-IP, then the connection address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) != nil {
		return ip
	}
	return "unknown"
}
