package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrSessionNotFound covers both unknown and expired session tokens.
var ErrSessionNotFound = errors.New("auth: session not found")

// Session is a server-side login session. The token is opaque; deleting
// the row revokes the session immediately.
type Session struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// SessionRepository persists login sessions.
type SessionRepository struct {
	db db
}

func NewSessionRepository(db db) *SessionRepository {
	if db == nil {
		panic("auth: db is required")
	}
	return &SessionRepository{db: db}
}

// Create stores a new session for the user.
func (r *SessionRepository) Create(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	const q = `INSERT INTO user_sessions (user_id, token, expires_at) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, q, userID, token, expiresAt); err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// FindValid returns the session and its user when the token exists and has
// not expired.
func (r *SessionRepository) FindValid(ctx context.Context, token string) (*Session, error) {
	const q = `
		SELECT s.token, s.expires_at,
		       u.id, u.line_user_id, u.display_name, u.picture_url, u.role, u.created_at, u.last_login_at
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > now()`

	var s Session
	err := r.db.QueryRow(ctx, q, token).Scan(
		&s.Token, &s.ExpiresAt,
		&s.User.ID, &s.User.LineUserID, &s.User.DisplayName, &s.User.PictureURL,
		&s.User.Role, &s.User.CreatedAt, &s.User.LastLoginAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find session: %w", err)
	}
	return &s, nil
}

// Delete revokes a session. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	const q = `DELETE FROM user_sessions WHERE token = $1`
	if _, err := r.db.Exec(ctx, q, token); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges stale rows. Intended for a periodic sweep.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM user_sessions WHERE expires_at <= now()`
	tag, err := r.db.Exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("auth: delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
