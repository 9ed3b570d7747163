// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by the counters.
const (
	StatusSuccess            = "success"
	StatusValidationFailed   = "validation_failed"
	StatusInvalidCredentials = "invalid_credentials"
	StatusError              = "error"
	StatusFailed             = "failed"
	StatusDeadLettered       = "dead_lettered"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Auth flow metrics
	IncRegistration(status string)
	IncLogin(status string)
	IncTokenMinted()

	// Bearer auth cache
	IncAuthCacheHit()
	IncAuthCacheMiss()

	// Audit pipeline metrics
	IncAuditEventPublished(status string) // status: "success" or "failed"
	IncAuditEventProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveAuditBatchSize(size int)
	SetAuditQueueDepth(depth int64)

	// HTTP
	ObserveRequestDuration(method string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
