package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("4th request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("other clients are counted separately")
	}

	*now = now.Add(30 * time.Second)
	if rl.Allow("1.1.1.1") {
		t.Fatal("window has not elapsed yet")
	}

	*now = now.Add(31 * time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Fatal("new window should allow again")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", m.TotalHits)
	}
	if m.ClientCount != 2 {
		t.Errorf("ClientCount = %d, want 2", m.ClientCount)
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, 10)
	rl.Allow("1.1.1.1")
	*now = now.Add(5 * time.Minute)
	rl.Allow("2.2.2.2")
	*now = now.Add(6 * time.Minute)

	rl.cleanupStaleEntries()
	if got := rl.ActiveClients(); got != 1 {
		t.Fatalf("ActiveClients = %d, want 1", got)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	extractIP := func(*http.Request) string { return "1.1.1.1" }
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limit exceeded"}`))
	}
	h := rl.Middleware(extractIP, onLimit, http.MethodPost, http.MethodPut, http.MethodDelete)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/transactions", nil))
		return rr
	}

	if rr := do(http.MethodPost); rr.Code != http.StatusOK {
		t.Fatalf("first POST = %d", rr.Code)
	}
	rr := do(http.MethodDelete)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	for i := 0; i < 5; i++ {
		if rr := do(http.MethodGet); rr.Code != http.StatusOK {
			t.Fatalf("GET should never be limited, got %d", rr.Code)
		}
	}
}
