package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mmmarc2025/sparkling-service/internal/bookings"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// Service sends out-of-band alerts to the shop operator. Delivery is best
// effort: the chat flow never waits on or fails because of an email.
type Service struct {
	email      EmailSender
	operatorTo string
	location   *time.Location
	logger     *logging.Logger
}

// NewService creates an operator notification service. email may be nil,
// in which case every alert is a logged no-op.
func NewService(email EmailSender, operatorTo string, location *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if location == nil {
		location = time.UTC
	}
	return &Service{
		email:      email,
		operatorTo: operatorTo,
		location:   location,
		logger:     logger,
	}
}

// BookingCreated alerts the operator that a new pending booking needs
// confirmation.
func (s *Service) BookingCreated(ctx context.Context, b *bookings.Booking, storeName string) {
	if !s.enabled() {
		return
	}

	local := b.StartTime.In(s.location)
	subject := fmt.Sprintf("🚗 新預約待確認 - %s", b.CustomerName)
	body := fmt.Sprintf(`有一筆新的預約等待確認。

客戶：%s
電話：%s
項目：%s
店家：%s
時間：%s
訂單編號：%s

請儘快與客戶聯繫確認。`,
		b.CustomerName, b.Phone, b.ServiceType, storeName, local.Format("2006/01/02 15:04"), b.ID)

	s.send(ctx, subject, body)
}

// BookingPersistFailed alerts the operator that a confirmed booking could
// not be saved, so the customer must be followed up by hand.
func (s *Service) BookingPersistFailed(ctx context.Context, customerName, storeName string, cause error) {
	if !s.enabled() {
		return
	}

	subject := fmt.Sprintf("⚠️ 預約寫入失敗 - %s", customerName)
	body := fmt.Sprintf(`一筆已確認的預約寫入資料庫時失敗，客戶已收到稍後再試的訊息。

客戶：%s
店家：%s
錯誤：%v

請人工確認客戶是否需要重新預約。`, customerName, storeName, cause)

	s.send(ctx, subject, body)
}

func (s *Service) enabled() bool {
	if s.email == nil || s.operatorTo == "" {
		s.logger.Debug("notify: operator email not configured, skipping alert")
		return false
	}
	return true
}

func (s *Service) send(ctx context.Context, subject, body string) {
	err := s.email.Send(ctx, EmailMessage{
		To:      s.operatorTo,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		s.logger.Error("operator alert failed", "error", err, "subject", subject)
		return
	}
	s.logger.Info("operator alert sent", "subject", subject)
}
