package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations          map[string]uint64
	Logins                 map[string]uint64
	TokensMinted           uint64
	AuthCacheHits          uint64
	AuthCacheMisses        uint64
	AuditEventsPublished   map[string]uint64
	AuditEventsProcessed   map[string]uint64
	AuditBatches           uint64
	AuditQueueDepth        int64
	RequestDurationCount   uint64
	RequestDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	tokensMinted           uint64
	authCacheHits          uint64
	authCacheMisses        uint64
	auditBatches           uint64
	auditQueueDepth        int64
	requestDurationCount   uint64
	requestDurationTotalNs int64

	mu             sync.Mutex
	registrations  map[string]uint64
	logins         map[string]uint64
	auditPublished map[string]uint64
	auditProcessed map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		registrations:  make(map[string]uint64),
		logins:         make(map[string]uint64),
		auditPublished: make(map[string]uint64),
		auditProcessed: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Registrations:          copyCounts(m.registrations),
		Logins:                 copyCounts(m.logins),
		TokensMinted:           atomic.LoadUint64(&m.tokensMinted),
		AuthCacheHits:          atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses:        atomic.LoadUint64(&m.authCacheMisses),
		AuditEventsPublished:   copyCounts(m.auditPublished),
		AuditEventsProcessed:   copyCounts(m.auditProcessed),
		AuditBatches:           atomic.LoadUint64(&m.auditBatches),
		AuditQueueDepth:        atomic.LoadInt64(&m.auditQueueDepth),
		RequestDurationCount:   atomic.LoadUint64(&m.requestDurationCount),
		RequestDurationTotalNs: atomic.LoadInt64(&m.requestDurationTotalNs),
	}
}

// IncRegistration counts a registration attempt by outcome.
func (m *InMemoryRecorder) IncRegistration(status string) {
	m.inc(m.registrations, status)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(status string) {
	m.inc(m.logins, status)
}

// IncTokenMinted increments the minted token counter.
func (m *InMemoryRecorder) IncTokenMinted() {
	atomic.AddUint64(&m.tokensMinted, 1)
}

// IncAuthCacheHit increments the auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments the auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}

// IncAuditEventPublished counts stream publishes by outcome.
func (m *InMemoryRecorder) IncAuditEventPublished(status string) {
	m.inc(m.auditPublished, status)
}

// IncAuditEventProcessed counts persisted audit events by outcome.
func (m *InMemoryRecorder) IncAuditEventProcessed(status string) {
	m.inc(m.auditProcessed, status)
}

// ObserveAuditBatchSize records a worker batch.
func (m *InMemoryRecorder) ObserveAuditBatchSize(int) {
	atomic.AddUint64(&m.auditBatches, 1)
}

// SetAuditQueueDepth records the backlog of the audit stream.
func (m *InMemoryRecorder) SetAuditQueueDepth(depth int64) {
	atomic.StoreInt64(&m.auditQueueDepth, depth)
}

// ObserveRequestDuration records request latency.
func (m *InMemoryRecorder) ObserveRequestDuration(_ string, _ int, duration time.Duration) {
	atomic.AddUint64(&m.requestDurationCount, 1)
	atomic.AddInt64(&m.requestDurationTotalNs, duration.Nanoseconds())
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, status string) {
	m.mu.Lock()
	counts[status]++
	m.mu.Unlock()
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
