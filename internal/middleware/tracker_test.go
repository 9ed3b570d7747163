package middleware

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bachelorbari/bachelorbari/internal/auth"
	"github.com/bachelorbari/bachelorbari/internal/metrics"
	"github.com/bachelorbari/bachelorbari/internal/model"
)

type captureSink struct {
	mu      sync.Mutex
	entries []model.RequestLogEntry
}

func (s *captureSink) Write(_ context.Context, entry model.RequestLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *captureSink) only(t *testing.T) model.RequestLogEntry {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) != 1 {
		t.Fatalf("sink received %d entries, want 1", len(s.entries))
	}
	return s.entries[0]
}

func TestRequestTracker_Status(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{
			name:    "implicit 200",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) },
			want:    http.StatusOK,
		},
		{
			name:    "nothing written",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			want:    http.StatusOK,
		},
		{
			name:    "explicit 201",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) },
			want:    http.StatusCreated,
		},
		{
			name:    "422 passes through",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnprocessableEntity) },
			want:    http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &captureSink{}
			handler := RequestTracker(sink, nil)(tt.handler)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/register", nil))

			if rec.Code != tt.want {
				t.Errorf("response status = %d, want %d", rec.Code, tt.want)
			}
			if got := sink.only(t).Status; got != tt.want {
				t.Errorf("logged status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestTracker_Fields(t *testing.T) {
	sink := &captureSink{}
	recorder := metrics.NewInMemory()
	handler := RequestTracker(sink, recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "http://api.example.com/api/login?x=1", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("User-Agent", "curl/8.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entry := sink.only(t)
	if entry.IP != "203.0.113.7" {
		t.Errorf("IP = %q, want 203.0.113.7", entry.IP)
	}
	if entry.Method != http.MethodPost {
		t.Errorf("Method = %q, want POST", entry.Method)
	}
	if entry.URL != "http://api.example.com/api/login?x=1" {
		t.Errorf("URL = %q", entry.URL)
	}
	if entry.UserAgent != "curl/8.0" {
		t.Errorf("UserAgent = %q, want curl/8.0", entry.UserAgent)
	}
	if entry.UserID != nil {
		t.Errorf("UserID = %q, want nil", *entry.UserID)
	}
	if entry.DurationMS < 2 {
		t.Errorf("DurationMS = %v, want >= 2", entry.DurationMS)
	}
	if got := recorder.Snapshot().RequestDurationCount; got != 1 {
		t.Errorf("request duration observations = %d, want 1", got)
	}
}

func TestRequestTracker_UserIDFromInnerMiddleware(t *testing.T) {
	sink := &captureSink{}
	handler := RequestTracker(sink, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.RequestFromContext(r.Context()).SetUserID("01HUSER")
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	entry := sink.only(t)
	if entry.UserID == nil || *entry.UserID != "01HUSER" {
		t.Errorf("UserID = %v, want 01HUSER", entry.UserID)
	}
}

func TestRequestTracker_PanicIsLoggedAndReraised(t *testing.T) {
	sink := &captureSink{}
	handler := RequestTracker(sink, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	func() {
		defer func() {
			if rvr := recover(); rvr != "boom" {
				t.Errorf("recovered %v, want boom", rvr)
			}
		}()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}()

	entry := sink.only(t)
	if entry.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", entry.Status)
	}
	if entry.DurationMS < 0 {
		t.Errorf("DurationMS = %v, want >= 0", entry.DurationMS)
	}
}

func TestRequestTracker_PanicAfterHeaderKeepsStatus(t *testing.T) {
	sink := &captureSink{}
	handler := RequestTracker(sink, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))

	func() {
		defer func() { _ = recover() }()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}()

	if got := sink.only(t).Status; got != http.StatusAccepted {
		t.Errorf("Status = %d, want 202", got)
	}
}

func TestRequestTracker_ShortCircuitByInnerMiddleware(t *testing.T) {
	sink := &captureSink{}
	reject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	called := false
	handler := RequestTracker(sink, nil)(reject(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	if called {
		t.Error("inner handler should not run")
	}
	if got := sink.only(t).Status; got != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", got)
	}
}

func TestFullURL(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://bari.test/api/profile?a=b", nil)
	if got := FullURL(req); got != "http://bari.test/api/profile?a=b" {
		t.Errorf("FullURL() = %q", got)
	}

	req.Header.Set("X-Forwarded-Proto", "HTTPS, http")
	if got := FullURL(req); got != "https://bari.test/api/profile?a=b" {
		t.Errorf("FullURL() with forwarded proto = %q", got)
	}

	req.Header.Del("X-Forwarded-Proto")
	req.TLS = &tls.ConnectionState{}
	if got := FullURL(req); got != "https://bari.test/api/profile?a=b" {
		t.Errorf("FullURL() with TLS = %q", got)
	}
}

func TestRequestTracker_RequestTargetForms(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"origin form", "/api/profile?a=b"},
		{"absolute form", "http://bari.test/api/profile?a=b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &captureSink{}
			srv := httptest.NewServer(RequestTracker(sink, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})))
			defer srv.Close()

			conn, err := net.Dial("tcp", srv.Listener.Addr().String())
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			if _, err := conn.Write([]byte("GET " + tt.target + " HTTP/1.1\r\nHost: bari.test\r\nConnection: close\r\n\r\n")); err != nil {
				t.Fatalf("write request: %v", err)
			}
			resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
			if err != nil {
				t.Fatalf("read response: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				t.Fatalf("status = %d, want 204", resp.StatusCode)
			}

			if got := sink.only(t).URL; got != "http://bari.test/api/profile?a=b" {
				t.Errorf("URL = %q, want http://bari.test/api/profile?a=b", got)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	if got := ClientIP(req); got != "2001:db8::1" {
		t.Errorf("ClientIP() = %q, want 2001:db8::1", got)
	}

	req.RemoteAddr = "198.51.100.4"
	if got := ClientIP(req); got != "198.51.100.4" {
		t.Errorf("ClientIP() without port = %q", got)
	}
}

func TestRoundMillis(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want float64
	}{
		{0, 0},
		{1234567 * time.Nanosecond, 1.23},
		{1235001 * time.Nanosecond, 1.24},
		{2 * time.Second, 2000},
	}
	for _, tt := range tests {
		if got := roundMillis(tt.in); got != tt.want {
			t.Errorf("roundMillis(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
