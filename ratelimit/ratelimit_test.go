package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *time.Time) {
	l := New(limit, window)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.lastCleanup = now
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	limiter, now := newTestLimiter(3, time.Minute)
	key := "wallet-1"

	for i := 0; i < 3; i++ {
		if !limiter.Allow(key) {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	if limiter.Allow(key) {
		t.Error("4th request should be denied")
	}

	*now = now.Add(61 * time.Second)

	if !limiter.Allow(key) {
		t.Error("request after window should be allowed")
	}
}

func TestLimiter_MultipleKeys(t *testing.T) {
	limiter, _ := newTestLimiter(2, time.Minute)

	limiter.Allow("a")
	limiter.Allow("a")

	if limiter.Allow("a") {
		t.Error("key a should be limited")
	}
	if !limiter.Allow("b") {
		t.Error("key b should not be affected by key a")
	}
}

func TestLimiter_SlidingWindow(t *testing.T) {
	limiter, now := newTestLimiter(2, time.Minute)
	key := "k"

	limiter.Allow(key)
	*now = now.Add(30 * time.Second)
	limiter.Allow(key)

	ok, wait := limiter.Reserve(key)
	if ok {
		t.Fatal("third request within window should be denied")
	}
	if wait != 30*time.Second {
		t.Errorf("wait = %v, want 30s", wait)
	}

	// First event slides out, second is still in the window.
	*now = now.Add(31 * time.Second)
	if !limiter.Allow(key) {
		t.Error("request should be allowed once the oldest event leaves the window")
	}
	if limiter.Allow(key) {
		t.Error("window should be full again")
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter, now := newTestLimiter(1, time.Second)

	limiter.Allow("old")
	*now = now.Add(time.Minute)
	limiter.Allow("new")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if _, ok := limiter.requests["old"]; ok {
		t.Error("stale key should have been cleaned up")
	}
}

func TestLimiter_Middleware(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	handler := limiter.Middleware(func(r *http.Request) string {
		return r.Header.Get("X-Key")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v0/auth/challenge", nil)
		if key != "" {
			req.Header.Set("X-Key", key)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	if rr := do("ip-1"); rr.Code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", rr.Code)
	}

	rr := do("ip-1")
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "61" {
		t.Errorf("Retry-After = %q, want 61", rr.Header().Get("Retry-After"))
	}

	for i := 0; i < 3; i++ {
		if rr := do(""); rr.Code != http.StatusOK {
			t.Errorf("unkeyed request status = %d, want 200", rr.Code)
		}
	}
}
