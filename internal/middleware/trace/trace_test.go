package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "finanzas/internal/log"
)

func TestMiddlewareTagsRequests(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" })
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK) // ignored
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}
	got := m.GetMetrics()
	if got.TotalRequests != 1 || got.ServerErrors != 1 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestMiddlewareKeepsValidClientID(t *testing.T) {
	m := NewMiddleware(nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		in   string
		keep bool
	}{
		{"abcdef12-3456", true},
		{"short", false},
		{"has space in it", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.in)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get(HeaderRequestID) == tt.in; got != tt.keep {
			t.Errorf("%q kept=%v, want %v", tt.in, got, tt.keep)
		}
	}
}

func TestMiddlewareLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	})
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" })
	var inner string
	h := applog.Middleware(logger)(m.Middleware(applog.RequestIDMiddleware(RequestID)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			applog.FromContext(r.Context()).InfoContext(r.Context(), "handled")
			inner = RequestID(r)
		}))))

	req := httptest.NewRequest(http.MethodGet, "/api/ledger", nil)
	req.Header.Set(HeaderRequestID, "abcdef12-3456")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if inner != "abcdef12-3456" {
		t.Fatalf("request id = %q", inner)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected start, handler and end lines, got %d:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		if n := strings.Count(line, "component="); n != 1 {
			t.Errorf("component appears %d times: %s", n, line)
		}
		if n := strings.Count(line, "request_id=abcdef12-3456"); n != 1 {
			t.Errorf("request_id appears %d times: %s", n, line)
		}
	}
}
