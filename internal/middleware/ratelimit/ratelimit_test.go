package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(cfg)
	t.Cleanup(rl.Stop)
	now := time.Date(2026, 6, 13, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowWindow(t *testing.T) {
	rl, now := newTestLimiter(t, Config{Requests: 2, Window: time.Minute})

	for i, want := range []bool{true, true, false} {
		if got := rl.Allow("1.2.3.4"); got != want {
			t.Fatalf("request %d: Allow() = %v, want %v", i+1, got, want)
		}
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other client should not share the bucket")
	}
	if rl.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", rl.Hits())
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Error("new window should reset the count")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, now := newTestLimiter(t, Config{Requests: 5, Window: time.Minute})
	rl.Allow("a")
	*now = now.Add(90 * time.Second)
	rl.Allow("b")
	*now = now.Add(time.Minute)

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Errorf("ActiveClients() = %d, want 1", rl.ActiveClients())
	}
}

func TestMiddlewareCountsConfiguredMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, Config{Requests: 1, Window: time.Minute, Methods: []string{http.MethodPost}})
	h := rl.Middleware(
		func(*http.Request) string { return "client" },
		nil,
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		return rr
	}

	if rr := send(http.MethodPost); rr.Code != http.StatusOK {
		t.Fatalf("first POST = %d", rr.Code)
	}
	rr := send(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	for range 3 {
		if rr := send(http.MethodGet); rr.Code != http.StatusOK {
			t.Fatalf("GET = %d, reads are not limited", rr.Code)
		}
	}
}
