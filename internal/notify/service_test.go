package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mmmarc2025/sparkling-service/internal/bookings"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(ctx context.Context, msg EmailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func taipei(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	return loc
}

func TestBookingCreatedSendsOperatorAlert(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "owner@example.com", taipei(t), nil)

	start := time.Date(2026, 9, 1, 7, 0, 0, 0, time.UTC) // 15:00 Taipei
	svc.BookingCreated(context.Background(), &bookings.Booking{
		ID:           uuid.New(),
		CustomerName: "Alice",
		Phone:        "0912345678",
		ServiceType:  "基礎洗車",
		StartTime:    start,
		Status:       bookings.StatusPending,
	}, "Taipei Flagship")

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	require.Equal(t, "owner@example.com", msg.To)
	require.Contains(t, msg.Subject, "Alice")
	require.Contains(t, msg.Body, "Taipei Flagship")
	require.Contains(t, msg.Body, "2026/09/01 15:00")
	require.Contains(t, msg.Body, "0912345678")
}

func TestBookingPersistFailedIncludesCause(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "owner@example.com", nil, nil)

	svc.BookingPersistFailed(context.Background(), "Bob", "Taipei Flagship", errors.New("connection refused"))

	require.Len(t, sender.sent, 1)
	require.Contains(t, sender.sent[0].Subject, "Bob")
	require.Contains(t, sender.sent[0].Body, "connection refused")
}

func TestAlertsSkippedWithoutRecipient(t *testing.T) {
	sender := &recordingSender{}
	svc := NewService(sender, "", nil, nil)

	svc.BookingCreated(context.Background(), &bookings.Booking{CustomerName: "Alice"}, "X")
	svc.BookingPersistFailed(context.Background(), "Alice", "X", errors.New("boom"))

	require.Empty(t, sender.sent)
}

func TestSendFailureDoesNotPanic(t *testing.T) {
	sender := &recordingSender{err: errors.New("rate limited")}
	svc := NewService(sender, "owner@example.com", nil, nil)

	require.NotPanics(t, func() {
		svc.BookingPersistFailed(context.Background(), "Alice", "X", errors.New("boom"))
	})
}
