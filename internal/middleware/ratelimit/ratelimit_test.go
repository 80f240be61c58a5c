package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter(cfg)
	t.Cleanup(l.Stop)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.mu.Lock()
	l.now = func() time.Time { return now }
	l.mu.Unlock()
	return l, &now
}

func TestLimiter_Window(t *testing.T) {
	l, now := newTestLimiter(t, Config{RequestsPerMinute: 3})

	for i := 0; i < 3; i++ {
		if !l.Allow("ip:10.0.0.1", 3) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if l.Allow("ip:10.0.0.1", 3) {
		t.Fatal("fourth request in the window should be limited")
	}
	if !l.Allow("ip:10.0.0.2", 3) {
		t.Fatal("other clients are not affected")
	}

	*now = now.Add(time.Minute)
	if !l.Allow("ip:10.0.0.1", 3) {
		t.Fatal("new window should reset the counter")
	}
	if got := l.GetMetrics().TotalHits; got != 1 {
		t.Errorf("hits = %d, want 1", got)
	}
}

func TestLimiter_Defaults(t *testing.T) {
	l, _ := newTestLimiter(t, Config{RequestsPerMinute: 5})
	if l.cfg.AuthRequestsPerMinute != 5 {
		t.Errorf("auth limit = %d, want it capped at the general limit", l.cfg.AuthRequestsPerMinute)
	}
	l2, _ := newTestLimiter(t, Config{})
	if l2.cfg.RequestsPerMinute != 60 || l2.cfg.AuthRequestsPerMinute != 10 {
		t.Errorf("defaults = %+v", l2.cfg)
	}
}

func TestLimiter_Bucket(t *testing.T) {
	l, _ := newTestLimiter(t, Config{RequestsPerMinute: 60, AuthRequestsPerMinute: 5})
	tests := []struct {
		method, path string
		wantKey      string
		wantLimit    int
	}{
		{http.MethodPost, "/api/auth/token", "auth:1.2.3.4", 5},
		{http.MethodPost, "/api/auth/register/", "auth:1.2.3.4", 5},
		{http.MethodPost, "/api/users/reset-password", "auth:1.2.3.4", 5},
		{http.MethodGet, "/api/auth/users/me", "ip:1.2.3.4", 60},
		{http.MethodPost, "/api/expenses", "ip:1.2.3.4", 60},
	}
	for _, tt := range tests {
		key, limit := l.Bucket(httptest.NewRequest(tt.method, tt.path, nil), "1.2.3.4")
		if key != tt.wantKey || limit != tt.wantLimit {
			t.Errorf("%s %s = %s/%d, want %s/%d", tt.method, tt.path, key, limit, tt.wantKey, tt.wantLimit)
		}
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l, now := newTestLimiter(t, Config{})
	l.Allow("ip:a", 10)
	*now = now.Add(11 * time.Minute)
	l.Allow("ip:b", 10)

	if removed := l.removeStale(); removed != 1 {
		t.Errorf("removed %d, want 1", removed)
	}
	if l.ActiveClients() != 1 {
		t.Errorf("active = %d", l.ActiveClients())
	}
}

func TestLimiter_MiddlewareSeparatesLogin(t *testing.T) {
	l, _ := newTestLimiter(t, Config{RequestsPerMinute: 3, AuthRequestsPerMinute: 1})
	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	if rec := do(http.MethodPost, "/api/auth/token"); rec.Code != http.StatusNoContent {
		t.Fatalf("first login = %d", rec.Code)
	}
	rec := do(http.MethodPost, "/api/auth/token")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("second login = %d, retry-after %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	// Other endpoints still have their own budget.
	if rec := do(http.MethodGet, "/api/budgets"); rec.Code != http.StatusNoContent {
		t.Errorf("budgets = %d", rec.Code)
	}
}
