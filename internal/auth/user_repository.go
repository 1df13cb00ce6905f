package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("auth: user not found")

// User is an account created from a LINE Login profile.
type User struct {
	ID          uuid.UUID `json:"id"`
	LineUserID  string    `json:"line_user_id"`
	DisplayName string    `json:"display_name"`
	PictureURL  string    `json:"picture_url,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UserRepository persists users keyed by their LINE user ID.
type UserRepository struct {
	db db
}

func NewUserRepository(db db) *UserRepository {
	if db == nil {
		panic("auth: db is required")
	}
	return &UserRepository{db: db}
}

// Upsert creates the user on first login and refreshes profile fields on
// every subsequent one.
func (r *UserRepository) Upsert(ctx context.Context, lineUserID, displayName, pictureURL string) (*User, error) {
	const q = `
		INSERT INTO users (line_user_id, display_name, picture_url, role, last_login_at)
		VALUES ($1, $2, $3, 'user', now())
		ON CONFLICT (line_user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    picture_url = EXCLUDED.picture_url,
		    last_login_at = now()
		RETURNING id, line_user_id, display_name, picture_url, role, created_at, last_login_at`

	var u User
	err := r.db.QueryRow(ctx, q, lineUserID, displayName, pictureURL).
		Scan(&u.ID, &u.LineUserID, &u.DisplayName, &u.PictureURL, &u.Role, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, fmt.Errorf("auth: upsert user: %w", err)
	}
	return &u, nil
}

// FindByID fetches a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const q = `
		SELECT id, line_user_id, display_name, picture_url, role, created_at, last_login_at
		FROM users WHERE id = $1`

	var u User
	err := r.db.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.LineUserID, &u.DisplayName, &u.PictureURL, &u.Role, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return &u, nil
}
