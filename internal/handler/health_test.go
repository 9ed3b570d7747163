package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockHealthChecker is a mock implementation of HealthChecker for testing.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, nil, slog.Default())

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	tests := []struct {
		name         string
		db           HealthChecker
		cache        HealthChecker
		wantCode     int
		wantStatus   string
		wantPostgres string
		wantRedis    string
	}{
		{
			name:         "all healthy",
			db:           &mockHealthChecker{},
			cache:        &mockHealthChecker{},
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantPostgres: "ok",
			wantRedis:    "ok",
		},
		{
			name:         "database down",
			db:           &mockHealthChecker{err: errors.New("connection refused")},
			cache:        &mockHealthChecker{},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "unhealthy",
			wantPostgres: "error",
			wantRedis:    "ok",
		},
		{
			name:         "redis down",
			db:           &mockHealthChecker{},
			cache:        &mockHealthChecker{err: errors.New("i/o timeout")},
			wantCode:     http.StatusServiceUnavailable,
			wantStatus:   "unhealthy",
			wantPostgres: "ok",
			wantRedis:    "error",
		},
		{
			name:         "nothing configured",
			wantCode:     http.StatusOK,
			wantStatus:   "ok",
			wantPostgres: "not configured",
			wantRedis:    "not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			h := NewHealthHandler(tt.db, tt.cache, slog.New(slog.NewTextHandler(&logs, nil)))

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}

			var response HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Status != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, response.Status)
			}
			if response.Checks["postgres"] != tt.wantPostgres {
				t.Errorf("postgres check = %q, want %q", response.Checks["postgres"], tt.wantPostgres)
			}
			if response.Checks["redis"] != tt.wantRedis {
				t.Errorf("redis check = %q, want %q", response.Checks["redis"], tt.wantRedis)
			}
			if tt.wantCode != http.StatusOK && !strings.Contains(logs.String(), "readiness check failed") {
				t.Errorf("failure should be logged, got: %s", logs.String())
			}
		})
	}
}
