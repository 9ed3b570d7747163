package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bachelorbari/bachelorbari/internal/metrics"
	"github.com/bachelorbari/bachelorbari/internal/model"
)

const (
	// StreamKey is the Redis stream for activity records.
	StreamKey = "stream:activity_log"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:activity_log:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 500 * time.Millisecond

	payloadField = "payload"
)

// Publisher appends activity records to the Redis stream.
// XADD is atomic, so concurrent appends never interleave.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new audit stream publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "audit.publisher"),
		metrics: recorder,
	}
}

// Append adds rec to the stream.
func (p *Publisher) Append(ctx context.Context, rec model.ActivityRecord) error {
	if err := Validate(rec); err != nil {
		return err
	}

	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	streamID, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			payloadField: payload,
		},
	}).Result()
	if err != nil {
		p.metrics.IncAuditEventPublished(metrics.StatusFailed)
		return fmt.Errorf("xadd: %w", err)
	}

	p.logger.Debug("activity published",
		"action", rec.Action,
		"actor_id", rec.ActorID,
		"stream_id", streamID,
	)
	p.metrics.IncAuditEventPublished(metrics.StatusSuccess)
	return nil
}
