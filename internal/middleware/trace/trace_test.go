package trace

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"bajeti/internal/log"
)

var requestIDPattern = regexp.MustCompile(`^req_[0-9a-f]{16}$`)

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if !requestIDPattern.MatchString(a) {
		t.Errorf("unexpected format %q", a)
	}
	if a == b {
		t.Errorf("ids should differ, got %q twice", a)
	}
}

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	m := NewMiddleware(nil, log.New(log.Config{Output: io.Discard}))

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets", nil))

	if !requestIDPattern.MatchString(seen) {
		t.Fatalf("request id not in context: %q", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("header %q, context %q", got, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Errorf("requests = %d", m.GetMetrics().TotalRequests)
	}
}
