// Package audit records user activity. Records are appended to a Redis
// stream and persisted to the activity_log table by a consumer-group worker.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// Logger appends activity records. Implementations must be safe for
// concurrent use.
type Logger interface {
	Append(ctx context.Context, rec model.ActivityRecord) error
}

// Store persists activity records.
type Store interface {
	InsertActivities(ctx context.Context, records []*model.ActivityRecord) error
}

// Field limits enforced on decode.
const (
	maxActionLength  = 255
	maxLogNameLength = 64
)

var errInvalidRecord = errors.New("invalid activity record")

// NewRecord builds a user activity record stamped with a fresh id.
func NewRecord(actorID, action string, props model.ActivityProperties, now time.Time) model.ActivityRecord {
	return model.ActivityRecord{
		ID:         ulid.Make().String(),
		LogName:    model.ActivityLogUser,
		ActorID:    actorID,
		Action:     action,
		Properties: props,
		CreatedAt:  now.UTC(),
	}
}

// Validate checks that a record carries the fields the activity_log
// schema requires.
func Validate(rec model.ActivityRecord) error {
	switch {
	case rec.ID == "":
		return fmt.Errorf("%w: id is required", errInvalidRecord)
	case rec.LogName == "" || len(rec.LogName) > maxLogNameLength:
		return fmt.Errorf("%w: log_name is required and at most %d chars", errInvalidRecord, maxLogNameLength)
	case rec.ActorID == "":
		return fmt.Errorf("%w: actor_id is required", errInvalidRecord)
	case rec.Action == "" || len(rec.Action) > maxActionLength:
		return fmt.Errorf("%w: action is required and at most %d chars", errInvalidRecord, maxActionLength)
	case rec.CreatedAt.IsZero():
		return fmt.Errorf("%w: created_at must be set", errInvalidRecord)
	}
	return nil
}

func encodeRecord(rec model.ActivityRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal activity: %w", err)
	}
	return string(data), nil
}

func decodeRecord(payload string) (*model.ActivityRecord, error) {
	var rec model.ActivityRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal activity: %w", err)
	}
	if err := Validate(rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// StoreLogger writes records straight to the store, bypassing the stream.
type StoreLogger struct {
	store Store
}

// NewStoreLogger creates a StoreLogger.
func NewStoreLogger(store Store) *StoreLogger {
	return &StoreLogger{store: store}
}

// Append persists rec synchronously.
func (l *StoreLogger) Append(ctx context.Context, rec model.ActivityRecord) error {
	if err := Validate(rec); err != nil {
		return err
	}
	return l.store.InsertActivities(ctx, []*model.ActivityRecord{&rec})
}
