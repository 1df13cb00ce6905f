package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Booking statuses. A row starts pending and is only moved on by the
// admin surface.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ErrNotFound is returned for missing booking rows.
var ErrNotFound = errors.New("bookings: not found")

// ErrInvalidStatus is returned for status transitions outside the known set.
var ErrInvalidStatus = errors.New("bookings: invalid status")

// Booking is a persisted booking row.
type Booking struct {
	ID           uuid.UUID
	CustomerName string
	Phone        string
	ServiceType  string
	StartTime    time.Time
	StoreID      *uuid.UUID
	Status       string
	CreatedAt    time.Time
}

// CreateRequest carries the fields of a resolved draft.
type CreateRequest struct {
	CustomerName string
	Phone        string
	ServiceType  string
	StartTime    time.Time
	StoreID      *uuid.UUID
}

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides persistence for bookings.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool or compatible handle.
func NewRepository(db db) *Repository {
	if db == nil {
		panic("bookings: db handle required")
	}
	return &Repository{db: db}
}

// Insert creates one booking row with status pending.
func (r *Repository) Insert(ctx context.Context, req CreateRequest) (*Booking, error) {
	b := &Booking{
		ID:           uuid.New(),
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		ServiceType:  req.ServiceType,
		StartTime:    req.StartTime,
		StoreID:      req.StoreID,
		Status:       StatusPending,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO bookings (id, customer_name, phone, service_type, start_time, store_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, b.ID, b.CustomerName, b.Phone, b.ServiceType, b.StartTime, b.StoreID, b.Status).Scan(&b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("bookings: insert pending: %w", err)
	}
	return b, nil
}

const bookingColumns = "id, customer_name, phone, service_type, start_time, store_id, status, created_at"

// List returns bookings newest first for the admin surface.
func (r *Repository) List(ctx context.Context, limit int) ([]Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListByPhone returns a customer's bookings newest first.
func (r *Repository) ListByPhone(ctx context.Context, phone string) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE phone = $1
		ORDER BY created_at DESC
	`, phone)
	if err != nil {
		return nil, fmt.Errorf("bookings: list by phone: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// UpdateStatus moves a booking between the known statuses.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	switch status {
	case StatusPending, StatusCompleted, StatusCancelled:
	default:
		return ErrInvalidStatus
	}
	tag, err := r.db.Exec(ctx, `UPDATE bookings SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("bookings: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var out []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.CustomerName, &b.Phone, &b.ServiceType, &b.StartTime, &b.StoreID, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("bookings: scan row: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("bookings: iterate rows: %w", err)
	}
	return out, nil
}
