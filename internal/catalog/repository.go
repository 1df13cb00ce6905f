package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStoreNotFound is returned when a name lookup matches no active store.
var ErrStoreNotFound = errors.New("catalog: store not found")

// ErrNotFound is returned for missing catalog rows on id lookups.
var ErrNotFound = errors.New("catalog: not found")

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides catalog reads for the bot and CRUD for the admin API.
type Repository struct {
	db db
}

// NewRepository creates a repository backed by a pgx pool or compatible handle.
func NewRepository(db db) *Repository {
	if db == nil {
		panic("catalog: db handle required")
	}
	return &Repository{db: db}
}

const serviceColumns = "id, name, category, price_small, price_medium, price_large, price_flat, is_active, created_at"

// ActiveServices returns active services in stable catalog order.
func (r *Repository) ActiveServices(ctx context.Context) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE is_active = TRUE
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: query active services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

// ListServices returns all services, active or not, for the admin surface.
func (r *Repository) ListServices(ctx context.Context) ([]Service, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: query services: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

// CreateService inserts a service row.
func (r *Repository) CreateService(ctx context.Context, svc *Service) error {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO services (id, name, category, price_small, price_medium, price_large, price_flat, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, svc.ID, svc.Name, svc.Category, svc.PriceSmall, svc.PriceMedium, svc.PriceLarge, svc.PriceFlat, svc.Active).Scan(&svc.CreatedAt)
	if err != nil {
		return fmt.Errorf("catalog: insert service: %w", err)
	}
	return nil
}

// UpdateService rewrites a service row.
func (r *Repository) UpdateService(ctx context.Context, svc *Service) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE services
		SET name = $2, category = $3, price_small = $4, price_medium = $5,
		    price_large = $6, price_flat = $7, is_active = $8
		WHERE id = $1
	`, svc.ID, svc.Name, svc.Category, svc.PriceSmall, svc.PriceMedium, svc.PriceLarge, svc.PriceFlat, svc.Active)
	if err != nil {
		return fmt.Errorf("catalog: update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteService removes a service row.
func (r *Repository) DeleteService(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const storeColumns = "id, name, address, lat, lng, is_active, created_at"

// ActiveStores returns active stores in stable catalog order.
func (r *Repository) ActiveStores(ctx context.Context) ([]Store, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE is_active = TRUE
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: query active stores: %w", err)
	}
	defer rows.Close()
	return scanStores(rows)
}

// ListStores returns all stores for the admin surface.
func (r *Repository) ListStores(ctx context.Context) ([]Store, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: query stores: %w", err)
	}
	defer rows.Close()
	return scanStores(rows)
}

// FindActiveStoreByName resolves an exact store name to its active row.
// Store names are unique, so the match is unambiguous.
func (r *Repository) FindActiveStoreByName(ctx context.Context, name string) (*Store, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE name = $1 AND is_active = TRUE
	`, name)
	var s Store
	if err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Lat, &s.Lng, &s.Active, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("catalog: lookup store by name: %w", err)
	}
	return &s, nil
}

// CreateStore inserts a store row.
func (r *Repository) CreateStore(ctx context.Context, s *Store) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO stores (id, name, address, lat, lng, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.Name, s.Address, s.Lat, s.Lng, s.Active).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("catalog: insert store: %w", err)
	}
	return nil
}

// UpdateStore rewrites a store row.
func (r *Repository) UpdateStore(ctx context.Context, s *Store) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE stores
		SET name = $2, address = $3, lat = $4, lng = $5, is_active = $6
		WHERE id = $1
	`, s.ID, s.Name, s.Address, s.Lat, s.Lng, s.Active)
	if err != nil {
		return fmt.Errorf("catalog: update store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStore removes a store row.
func (r *Repository) DeleteStore(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanServices(rows pgx.Rows) ([]Service, error) {
	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Category, &s.PriceSmall, &s.PriceMedium, &s.PriceLarge, &s.PriceFlat, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate services: %w", err)
	}
	return out, nil
}

func scanStores(rows pgx.Rows) ([]Store, error) {
	var out []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.Lat, &s.Lng, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan store: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate stores: %w", err)
	}
	return out, nil
}
