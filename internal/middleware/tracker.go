package middleware

import (
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bachelorbari/bachelorbari/internal/auth"
	"github.com/bachelorbari/bachelorbari/internal/logging"
	"github.com/bachelorbari/bachelorbari/internal/metrics"
	"github.com/bachelorbari/bachelorbari/internal/model"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestTracker times every request and writes exactly one entry to sink
// once the handler returns or panics. A panic is re-raised after logging.
//
// It installs the request-scoped model.RequestContext; the bearer auth
// middleware further down the chain records the user on it.
func RequestTracker(sink logging.RequestSink, recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rc := &model.RequestContext{
				IP:        ClientIP(r),
				UserAgent: r.UserAgent(),
			}
			ctx := auth.ContextWithRequest(r.Context(), rc)
			wrapped := wrapResponseWriter(w)

			defer func() {
				rvr := recover()
				elapsed := time.Since(start)

				status := wrapped.status
				if rvr != nil && !wrapped.wroteHeader {
					status = http.StatusInternalServerError
				}

				entry := model.RequestLogEntry{
					IP:         rc.IP,
					Method:     r.Method,
					URL:        FullURL(r),
					UserAgent:  rc.UserAgent,
					DurationMS: roundMillis(elapsed),
					Status:     status,
				}
				if id := rc.UserID(); id != "" {
					entry.UserID = &id
				}

				sink.Write(ctx, entry)
				recorder.ObserveRequestDuration(r.Method, status, elapsed)

				if rvr != nil {
					panic(rvr)
				}
			}()

			next.ServeHTTP(wrapped, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the client address without port. It relies on
// chi's RealIP having rewritten RemoteAddr from trusted proxy headers.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FullURL rebuilds the absolute request URL including the query string.
func FullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}

	// r.RequestURI is the raw request-target, which may already be an
	// absolute URL.
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// roundMillis converts d to milliseconds rounded to two decimals.
func roundMillis(d time.Duration) float64 {
	ms := float64(d.Nanoseconds()) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
