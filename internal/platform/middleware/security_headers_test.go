package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		path  string
		csp   string
		cache string
	}{
		{"/api/aih/1", apiCSP, "no-store"},
		{"/health", clientCSP, ""},
		{"/app.js", clientCSP, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, tt.path, nil), rec)
			if err := SecurityHeaders()(okHandler)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, kv := range baseHeaders {
				if got := rec.Header().Get(kv[0]); got != kv[1] {
					t.Errorf("header %s: got %q, want %q", kv[0], got, kv[1])
				}
			}
			if got := rec.Header().Get("Content-Security-Policy"); got != tt.csp {
				t.Errorf("csp: got %q, want %q", got, tt.csp)
			}
			if got := rec.Header().Get("Cache-Control"); got != tt.cache {
				t.Errorf("cache-control: got %q, want %q", got, tt.cache)
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
		})
	}
}
