package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// InsertActivities persists activity records. Redelivered records are
// skipped via ON CONFLICT DO NOTHING on the record id.
func (r *Repository) InsertActivities(ctx context.Context, records []*model.ActivityRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO activity_log (id, log_name, actor_id, action, properties, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	for _, rec := range records {
		props, err := json.Marshal(rec.Properties)
		if err != nil {
			return fmt.Errorf("encode properties of %s: %w", rec.ID, err)
		}
		batch.Queue(query,
			rec.ID,
			rec.LogName,
			rec.ActorID,
			rec.Action,
			props,
			rec.CreatedAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert activity %d: %w", i, err)
		}
	}

	return nil
}

// ListActivitiesByActor returns the activity of one user, oldest first.
func (r *Repository) ListActivitiesByActor(ctx context.Context, actorID string) ([]*model.ActivityRecord, error) {
	query := `
		SELECT id, log_name, actor_id, action, properties, created_at
		FROM activity_log
		WHERE actor_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var records []*model.ActivityRecord
	for rows.Next() {
		var rec model.ActivityRecord
		var props []byte
		if err := rows.Scan(&rec.ID, &rec.LogName, &rec.ActorID, &rec.Action, &props, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		if err := json.Unmarshal(props, &rec.Properties); err != nil {
			return nil, fmt.Errorf("decode properties of %s: %w", rec.ID, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}

	return records, nil
}
