package conversation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// HistoryStore is the append-only chat log keyed by LINE user id. Turns
// are never mutated; reads cover a bounded recent window.
type HistoryStore struct {
	db db
}

// NewHistoryStore creates a history store backed by a pgx pool or
// compatible handle.
func NewHistoryStore(db db) *HistoryStore {
	if db == nil {
		panic("conversation: db handle required")
	}
	return &HistoryStore{db: db}
}

// LoadRecent returns up to limit most recent turns in chronological order
// (fetched newest-first, then reversed for model consumption). A user
// with no history gets an empty slice, not an error.
func (s *HistoryStore) LoadRecent(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT role, content
		FROM chat_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}
	defer rows.Close()

	var newestFirst []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("conversation: scan history row: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conversation: iterate history: %w", err)
	}

	history := make([]ChatMessage, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		history = append(history, newestFirst[i])
	}
	return history, nil
}

// Append records one turn. Failures are reported to the caller but must
// never block reply delivery.
func (s *HistoryStore) Append(ctx context.Context, userID, role, content string) error {
	if _, err := s.db.Exec(ctx, `
		INSERT INTO chat_history (user_id, role, content)
		VALUES ($1, $2, $3)
	`, userID, role, content); err != nil {
		return fmt.Errorf("conversation: append history: %w", err)
	}
	return nil
}
