package bookings

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

var bookingsTracer = otel.Tracer("sparkling.internal.bookings")

// Service creates pending bookings from resolved drafts and serves the
// admin surface.
type Service struct {
	repo   *Repository
	logger *logging.Logger
}

// NewService constructs a bookings service.
func NewService(repo *Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// CreatePending inserts one booking row with status pending.
func (s *Service) CreatePending(ctx context.Context, req CreateRequest) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create_pending")
	defer span.End()
	span.SetAttributes(
		attribute.String("sparkling.service_type", req.ServiceType),
	)

	row, err := s.repo.Insert(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("booking created", "booking_id", row.ID, "service_type", row.ServiceType, "start_time", row.StartTime)
	return row, nil
}

// List returns recent bookings for the admin console.
func (s *Service) List(ctx context.Context, limit int) ([]Booking, error) {
	return s.repo.List(ctx, limit)
}

// ListByPhone returns a customer's own bookings.
func (s *Service) ListByPhone(ctx context.Context, phone string) ([]Booking, error) {
	return s.repo.ListByPhone(ctx, phone)
}

// UpdateStatus applies an admin status transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	ctx, span := bookingsTracer.Start(ctx, "bookings.update_status")
	defer span.End()
	span.SetAttributes(attribute.String("sparkling.status", status))

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		span.RecordError(err)
		return err
	}
	s.logger.Info("booking status updated", "booking_id", id, "status", status)
	return nil
}
