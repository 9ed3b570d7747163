package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func corsRequest(t *testing.T, origins []string, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/api/login", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	CORS(cfg)(next).ServeHTTP(rec, req)
	return rec
}

func TestCORS_OriginMatching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origins []string
		origin  string
		allowed bool
	}{
		{"empty allow list", nil, "https://app.bachelorbari.com", false},
		{"exact match", []string{"https://app.bachelorbari.com"}, "https://app.bachelorbari.com", true},
		{"other origin", []string{"https://app.bachelorbari.com"}, "https://evil.example", false},
		{"configured in upper case", []string{"HTTPS://APP.BACHELORBARI.COM"}, "https://app.bachelorbari.com", true},
		{"subdomain pattern", []string{"*.bachelorbari.com"}, "https://admin.bachelorbari.com", true},
		{"pattern needs a subdomain", []string{"*.bachelorbari.com"}, "https://.bachelorbari.com", false},
		{"pattern rejects lookalike", []string{"*.bachelorbari.com"}, "https://notbachelorbari.com", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := corsRequest(t, tt.origins, http.MethodPost, tt.origin)

			// Simple requests always reach the handler; the browser enforces the result.
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}

			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.origin)
			}
			if !tt.allowed && got != "" {
				t.Errorf("Access-Control-Allow-Origin = %q, want none", got)
			}
		})
	}
}

func TestCORS_NoOriginHeader(t *testing.T) {
	t.Parallel()

	rec := corsRequest(t, []string{"https://app.bachelorbari.com"}, http.MethodGet, "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(rec.Header().Values("Vary")) != 0 {
		t.Error("same-origin requests should not get CORS headers")
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	origin := "https://app.bachelorbari.com"
	rec := corsRequest(t, []string{origin}, http.MethodOptions, origin)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	h := rec.Header()
	if got := h.Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if got := h.Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Errorf("Access-Control-Allow-Headers = %q, want Authorization listed", got)
	}
	if got := h.Get("Access-Control-Max-Age"); got != "86400" {
		t.Errorf("Access-Control-Max-Age = %q, want 86400", got)
	}
	if got := h.Get("Access-Control-Expose-Headers"); got != RequestIDHeader {
		t.Errorf("Access-Control-Expose-Headers = %q, want %q", got, RequestIDHeader)
	}
	if got := h.Get("Vary"); got != "Origin" {
		t.Errorf("Vary = %q, want Origin", got)
	}
	if h.Get("Access-Control-Allow-Credentials") != "" {
		t.Error("credentials must not be allowed")
	}
}

func TestCORS_PreflightFromUnknownOrigin(t *testing.T) {
	t.Parallel()

	rec := corsRequest(t, []string{"https://app.bachelorbari.com"}, http.MethodOptions, "https://evil.example")

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("Access-Control-Allow-Methods = %q, want none", got)
	}
}
