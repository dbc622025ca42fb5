package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"operaflow/internal/model"
)

// DefaultEventLimit caps ListTaskEvents when no limit is given.
const DefaultEventLimit = 100

// appendEvent records an audit row for a task mutation inside tx.
func (s *Store) appendEvent(ctx context.Context, q querier, taskID int64, typ string, payload any) error {
	raw := []byte("{}")
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", typ, err)
		}
		raw = b
	}
	if _, err := q.ExecContext(ctx,
		"INSERT INTO tache_events (id, tache_id, type, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), taskID, typ, string(raw), s.timestamp(),
	); err != nil {
		return fmt.Errorf("append %s event: %w", typ, err)
	}
	return nil
}

// ListTaskEvents returns the audit trail of a task, newest first.
func (s *Store) ListTaskEvents(ctx context.Context, taskID int64, limit int) ([]model.TaskEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, tache_id, type, payload, created_at FROM tache_events
		WHERE tache_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events of task %d: %w", taskID, err)
	}
	defer rows.Close()

	out := []model.TaskEvent{}
	for rows.Next() {
		var (
			ev        model.TaskEvent
			payload   string
			createdAt string
		)
		if err := rows.Scan(&ev.ID, &ev.TaskID, &ev.Type, &payload, &createdAt); err != nil {
			return nil, err
		}
		ev.Payload = json.RawMessage(payload)
		ev.CreatedAt = parseTime(createdAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}
