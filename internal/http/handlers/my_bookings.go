package handlers

import (
	"context"
	"net/http"

	"github.com/mmmarc2025/sparkling-service/internal/auth"
	"github.com/mmmarc2025/sparkling-service/internal/bookings"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// BookingReader is the read surface for the customer-facing listing.
type BookingReader interface {
	List(ctx context.Context, limit int) ([]bookings.Booking, error)
	ListByPhone(ctx context.Context, phone string) ([]bookings.Booking, error)
}

// MyBookingsHandler lists bookings for a logged-in customer. Chat bookings
// carry a phone number rather than a user ID, so the lookup is by the
// phone the customer provides; without one it falls back to the latest
// bookings.
type MyBookingsHandler struct {
	svc    BookingReader
	logger *logging.Logger
}

func NewMyBookingsHandler(svc BookingReader, logger *logging.Logger) *MyBookingsHandler {
	if svc == nil {
		panic("handlers: booking reader is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MyBookingsHandler{svc: svc, logger: logger}
}

// ListMine returns the caller's bookings.
// GET /api/my/bookings?phone=0912345678 (session required)
func (h *MyBookingsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "session required")
		return
	}

	var (
		rows []bookings.Booking
		err  error
	)
	if phone := r.URL.Query().Get("phone"); phone != "" {
		rows, err = h.svc.ListByPhone(r.Context(), phone)
	} else {
		rows, err = h.svc.List(r.Context(), 10)
	}
	if err != nil {
		h.logger.Error("failed to list user bookings", "error", err, "user_id", user.ID)
		writeJSONError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if rows == nil {
		rows = []bookings.Booking{}
	}
	writeJSON(w, http.StatusOK, rows)
}
