package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ Recorder = (*NoopRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRegistration(StatusSuccess)
	m.IncRegistration(StatusValidationFailed)
	m.IncRegistration(StatusSuccess)
	m.IncLogin(StatusInvalidCredentials)
	m.IncTokenMinted()
	m.IncAuthCacheHit()
	m.IncAuthCacheMiss()
	m.IncAuthCacheMiss()
	m.IncAuditEventPublished(StatusSuccess)
	m.IncAuditEventProcessed(StatusDeadLettered)
	m.ObserveAuditBatchSize(3)
	m.SetAuditQueueDepth(7)
	m.ObserveRequestDuration("GET", 200, 1500*time.Microsecond)

	snap := m.Snapshot()
	if snap.Registrations[StatusSuccess] != 2 || snap.Registrations[StatusValidationFailed] != 1 {
		t.Errorf("registrations = %v", snap.Registrations)
	}
	if snap.Logins[StatusInvalidCredentials] != 1 {
		t.Errorf("logins = %v", snap.Logins)
	}
	if snap.TokensMinted != 1 || snap.AuthCacheHits != 1 || snap.AuthCacheMisses != 2 {
		t.Errorf("unexpected counters: %+v", snap)
	}
	if snap.AuditEventsPublished[StatusSuccess] != 1 || snap.AuditEventsProcessed[StatusDeadLettered] != 1 {
		t.Errorf("audit counters: %+v", snap)
	}
	if snap.AuditBatches != 1 || snap.AuditQueueDepth != 7 {
		t.Errorf("audit batch/depth: %+v", snap)
	}
	if snap.RequestDurationCount != 1 || snap.RequestDurationTotalNs != 1500000 {
		t.Errorf("request duration: %+v", snap)
	}

	// Snapshot maps are copies.
	snap.Registrations[StatusSuccess] = 99
	if m.Snapshot().Registrations[StatusSuccess] != 2 {
		t.Error("snapshot should not alias recorder state")
	}
}

func TestPrometheusRecorder_Counters(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncLogin(StatusSuccess)
	p.IncLogin(StatusSuccess)
	p.IncLogin(StatusInvalidCredentials)
	p.IncTokenMinted()
	p.SetAuditQueueDepth(4)

	if got := testutil.ToFloat64(p.logins.WithLabelValues(StatusSuccess)); got != 2 {
		t.Errorf("logins{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.tokensMinted); got != 1 {
		t.Errorf("tokens minted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.auditQueueDepth); got != 4 {
		t.Errorf("queue depth = %v, want 4", got)
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncRegistration(StatusSuccess)
	p.ObserveRequestDuration(http.MethodPost, http.StatusCreated, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`bachelorbari_registrations_total{status="success"} 1`,
		`bachelorbari_http_request_duration_seconds_count{method="POST",status="201"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
