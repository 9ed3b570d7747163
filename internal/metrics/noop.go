package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncRegistration(string) {}
func (n *NoopRecorder) IncLogin(string) {}
func (n *NoopRecorder) IncTokenMinted() {}
func (n *NoopRecorder) IncAuthCacheHit() {}
func (n *NoopRecorder) IncAuthCacheMiss() {}
func (n *NoopRecorder) IncAuditEventPublished(string) {}
func (n *NoopRecorder) IncAuditEventProcessed(string) {}
func (n *NoopRecorder) ObserveAuditBatchSize(int) {}
func (n *NoopRecorder) SetAuditQueueDepth(int64) {}
func (n *NoopRecorder) ObserveRequestDuration(string, int, time.Duration) {}
