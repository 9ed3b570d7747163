package audit

import (
	"context"
	"sync"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// MemoryLogger keeps records in process. Err, when set, fails every Append.
type MemoryLogger struct {
	mu      sync.Mutex
	records []model.ActivityRecord
	Err     error
}

// NewMemoryLogger creates an empty MemoryLogger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Append stores rec.
func (l *MemoryLogger) Append(_ context.Context, rec model.ActivityRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.records = append(l.records, rec)
	return nil
}

// Records returns a copy of the appended records in order.
func (l *MemoryLogger) Records() []model.ActivityRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.ActivityRecord, len(l.records))
	copy(out, l.records)
	return out
}
