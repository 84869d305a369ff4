// Package ratelimit provides a sliding window rate limiter keyed by wallet
// address or client IP.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter implements a sliding window rate limiter.
type Limiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time

	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// New creates a limiter allowing limit events per window for each key.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		requests:        make(map[string][]time.Time),
		limit:           limit,
		window:          window,
		now:             time.Now,
		cleanupInterval: window * 10,
		lastCleanup:     time.Now(),
	}
}

// Allow records an event for key and reports whether it is within the limit.
// Rejected events are not recorded.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// Reserve is Allow that also reports how long until the next event would
// be accepted when the current one is rejected.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.window)

	if now.Sub(l.lastCleanup) > l.cleanupInterval {
		l.cleanup(windowStart)
		l.lastCleanup = now
	}

	valid := prune(l.requests[key], windowStart)
	if len(valid) >= l.limit {
		if len(valid) == 0 {
			return false, l.window
		}
		l.requests[key] = valid
		return false, valid[0].Add(l.window).Sub(now)
	}

	l.requests[key] = append(valid, now)
	return true, 0
}

func prune(times []time.Time, windowStart time.Time) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}
	return valid
}

// cleanup drops keys with no events in the window. Must be called with mu held.
func (l *Limiter) cleanup(windowStart time.Time) {
	for key, times := range l.requests {
		valid := prune(times, windowStart)
		if len(valid) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = valid
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
// Requests for which key returns "" are not limited.
func (l *Limiter) Middleware(key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			if ok, wait := l.Reserve(k); !ok {
				secs := int(wait/time.Second) + 1
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
