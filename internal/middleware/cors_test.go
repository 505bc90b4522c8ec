package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSMiddleware_AllowAll(t *testing.T) {
	h := CORSMiddleware([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, expected 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORSMiddleware_RestrictedOrigins(t *testing.T) {
	h := CORSMiddleware([]string{"https://app.example.org"})(okHandler())

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://app.example.org", true},
		{"HTTPS://APP.EXAMPLE.ORG", true},
		{"https://evil.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin") != ""
		if got != tt.allowed {
			t.Errorf("origin %q: allowed = %v, expected %v", tt.origin, got, tt.allowed)
		}
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	h := CORSMiddleware([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/logs/info/clear", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, expected 204", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the wrapped handler")
	}
}
