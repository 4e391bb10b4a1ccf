package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/daycare/internal/events"
)

// TallyHandler folds completed sessions into per-dog, per-kind daily counts.
// Other event types are acknowledged without effect.
type TallyHandler struct {
	pool *pgxpool.Pool
}

// NewTallyHandler constructs a handler backed by the provided pool.
func NewTallyHandler(pool *pgxpool.Pool) *TallyHandler {
	return &TallyHandler{pool: pool}
}

// Handle increments the activity_counts row for the session's day.
func (h *TallyHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != "activity.ended" {
		return nil
	}

	var ended events.ActivityEnded
	if err := json.Unmarshal(msg.Payload, &ended); err != nil {
		return fmt.Errorf("decode activity.ended payload: %w", err)
	}

	conn, err := h.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx,
		`INSERT INTO activity_counts (dog_id, activity_kind, day, sessions, updated_at)
         VALUES ($1, $2, $3::date, 1, NOW())
         ON CONFLICT (dog_id, activity_kind, day)
         DO UPDATE SET sessions = activity_counts.sessions + 1, updated_at = NOW()`,
		ended.DogID,
		ended.ActivityKind,
		ended.EndTime.UTC(),
	)
	return err
}
