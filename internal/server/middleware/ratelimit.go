package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter applies a fixed-window request quota per client IP. Buckets
// refill once per window and idle clients are evicted in the background.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	logger  *zerolog.Logger
}

// bucket tracks remaining quota for one client within the current window.
type bucket struct {
	mu        sync.Mutex
	remaining int
	windowEnd time.Time
}

// NewRateLimiter creates a rate limiter allowing limit requests per minute
// per client IP.
func NewRateLimiter(limit int, logger *zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  time.Minute,
		logger:  logger,
	}

	go rl.evictIdle()

	return rl
}

// evictIdle drops buckets whose window ended long ago so the map does not
// grow without bound.
func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			b.mu.Lock()
			stale := b.windowEnd.Before(cutoff)
			b.mu.Unlock()
			if stale {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// allow consumes one unit of the client's quota, refilling the bucket when
// its window has elapsed.
func (rl *RateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &bucket{remaining: rl.limit, windowEnd: time.Now().Add(rl.window)}
		rl.buckets[ip] = b
	}
	rl.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	if now := time.Now(); now.After(b.windowEnd) {
		b.remaining = rl.limit
		b.windowEnd = now.Add(rl.window)
	}

	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// RateLimit rejects requests over the per-IP quota with a 429 envelope.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
				ip = forwarded
			}

			if !rl.allow(ip) {
				rl.logger.Warn().
					Str("ip", ip).
					Str("path", r.URL.Path).
					Msg("Rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				if _, err := w.Write([]byte(`{"data":null,"error":{"code":"RATE_LIMITED","message":"Rate limit exceeded","details":"Too many requests. Please try again later."}}`)); err != nil {
					rl.logger.Error().Err(err).Msg("Failed to write rate limit error response")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
