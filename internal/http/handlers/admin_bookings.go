package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mmmarc2025/sparkling-service/internal/bookings"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// BookingService is the booking surface the admin API needs.
type BookingService interface {
	List(ctx context.Context, limit int) ([]bookings.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// AdminBookingsHandler reviews and confirms chat-created bookings.
type AdminBookingsHandler struct {
	svc    BookingService
	logger *logging.Logger
}

func NewAdminBookingsHandler(svc BookingService, logger *logging.Logger) *AdminBookingsHandler {
	if svc == nil {
		panic("handlers: booking service is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminBookingsHandler{svc: svc, logger: logger}
}

// ListBookings returns recent bookings, newest first.
// GET /admin/bookings?limit=50
func (h *AdminBookingsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.svc.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list bookings", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if rows == nil {
		rows = []bookings.Booking{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// UpdateBookingStatus moves a booking through its lifecycle.
// PATCH /admin/bookings/{id}/status
func (h *AdminBookingsHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, bookings.ErrInvalidStatus):
		writeJSONError(w, http.StatusBadRequest, "invalid status")
	case errors.Is(err, bookings.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "booking not found")
	case err != nil:
		h.logger.Error("failed to update booking status", "error", err, "booking_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to update booking")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": req.Status})
	}
}
