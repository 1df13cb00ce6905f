package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mmmarc2025/sparkling-service/internal/bookings"
	"github.com/mmmarc2025/sparkling-service/internal/catalog"
	"github.com/mmmarc2025/sparkling-service/internal/linechannel"
	"github.com/mmmarc2025/sparkling-service/internal/observability/metrics"
)

type memHistory struct {
	turns      map[string][]ChatMessage
	failAppend bool
}

func newMemHistory() *memHistory {
	return &memHistory{turns: make(map[string][]ChatMessage)}
}

func (m *memHistory) LoadRecent(ctx context.Context, userID string, limit int) ([]ChatMessage, error) {
	history := m.turns[userID]
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (m *memHistory) Append(ctx context.Context, userID, role, content string) error {
	if m.failAppend {
		return errors.New("history unavailable")
	}
	m.turns[userID] = append(m.turns[userID], ChatMessage{Role: role, Content: content})
	return nil
}

type stubLLM struct {
	reply string
	err   error
	calls int
	last  LLMRequest
}

func (s *stubLLM) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.reply}, nil
}

type stubBookings struct {
	created []bookings.CreateRequest
	err     error
}

func (s *stubBookings) CreatePending(ctx context.Context, req bookings.CreateRequest) (*bookings.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, req)
	return &bookings.Booking{CustomerName: req.CustomerName, Status: bookings.StatusPending, StartTime: req.StartTime, StoreID: req.StoreID}, nil
}

type stubReplier struct {
	replies []string
	tokens  []string
}

func (s *stubReplier) Reply(ctx context.Context, replyToken, text string) error {
	s.tokens = append(s.tokens, replyToken)
	s.replies = append(s.replies, text)
	return nil
}

type stubNotifier struct {
	createdCalls int
	failedCalls  int
}

func (s *stubNotifier) BookingCreated(ctx context.Context, b *bookings.Booking, storeName string) {
	s.createdCalls++
}

func (s *stubNotifier) BookingPersistFailed(ctx context.Context, customerName, storeName string, cause error) {
	s.failedCalls++
}

type processorFixture struct {
	processor *Processor
	history   *memHistory
	llm       *stubLLM
	bookings  *stubBookings
	replier   *stubReplier
	notifier  *stubNotifier
	catalog   *stubCatalog
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	cat := newTestCatalog()
	prompt := NewPromptBuilder(&stubSettings{}, cat, "Asia/Taipei", nil)
	f := &processorFixture{
		history:  newMemHistory(),
		llm:      &stubLLM{},
		bookings: &stubBookings{},
		replier:  &stubReplier{},
		notifier: &stubNotifier{},
		catalog:  cat,
	}
	f.processor = NewProcessor(
		prompt, f.history, f.llm, cat, f.bookings, f.replier, f.notifier,
		metrics.NewWebhookMetrics(prometheus.NewRegistry()), nil,
		ProcessorConfig{HistoryWindow: 6, MaxTokens: 500, Temperature: 0.5, CompletionTimeout: time.Second},
	)
	return f
}

func textEvent(token, userID, text string) linechannel.Event {
	return linechannel.Event{
		Type:       "message",
		ReplyToken: token,
		Source:     &linechannel.Source{Type: "user", UserID: userID},
		Message:    &linechannel.Message{Type: linechannel.MessageTypeText, Text: text},
	}
}

func locationEvent(token, userID string, lat, lng float64) linechannel.Event {
	return linechannel.Event{
		Type:       "message",
		ReplyToken: token,
		Source:     &linechannel.Source{Type: "user", UserID: userID},
		Message:    &linechannel.Message{Type: linechannel.MessageTypeLocation, Latitude: lat, Longitude: lng},
	}
}

// Scenario A: a complete draft with a matching store becomes a pending booking.
func TestTextEventWithBookingCreatesPendingRow(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.reply = "好的！\n" + validBlock

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-a", "U1", "我是 Alice，0912345678，明天下午三點想洗基礎洗車"),
	})

	require.Len(t, f.bookings.created, 1)
	created := f.bookings.created[0]
	require.Equal(t, "Alice", created.CustomerName)
	require.Equal(t, "0912345678", created.Phone)
	require.NotNil(t, created.StoreID)
	require.Equal(t, f.catalog.stores[0].ID, *created.StoreID)

	require.Len(t, f.replier.replies, 1)
	require.Contains(t, f.replier.replies[0], "預約成功")
	require.Contains(t, f.replier.replies[0], "Taipei Flagship")
	require.NotContains(t, f.replier.replies[0], BookingDelimiter)
	require.Equal(t, 1, f.notifier.createdCalls)

	// History carries the user turn and the cleaned outcome text.
	turns := f.history.turns["U1"]
	require.Len(t, turns, 2)
	require.Equal(t, ChatRoleUser, turns[0].Role)
	require.Equal(t, ChatRoleAssistant, turns[1].Role)
	require.NotContains(t, turns[1].Content, BookingDelimiter)
}

// Scenario B: a location message suggests the nearest of the active stores.
func TestLocationEventSuggestsNearestStore(t *testing.T) {
	f := newProcessorFixture(t)
	second := catalog.Store{Name: "Kaohsiung Branch", Address: "高雄市某路", Lat: 22.62, Lng: 120.30, Active: true}
	f.catalog.stores = append(f.catalog.stores, second)

	// Near Taipei 101: flagship wins.
	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		locationEvent("tok-b", "U2", 25.034, 121.564),
	})

	require.Len(t, f.replier.replies, 1)
	require.Contains(t, f.replier.replies[0], "Taipei Flagship")
	require.Contains(t, f.replier.replies[0], "km")
	require.NotContains(t, f.replier.replies[0], "Kaohsiung Branch")

	// Context seeded for the follow-up confirmation turn.
	turns := f.history.turns["U2"]
	require.Len(t, turns, 2)
	require.Contains(t, turns[0].Content, "[User Location:")
	require.Contains(t, turns[1].Content, "Taipei Flagship")
	require.Zero(t, f.llm.calls, "location events never call the model")
}

// Scenario C: an unmatched store name never creates a booking.
func TestUnresolvedStoreNameAsksForCorrection(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.reply = `<<<BOOKING>>>{"customer_name":"Alice","phone":"0912345678","service_type":"基礎洗車","start_time":"2026-09-01T15:00:00+08:00","store_name":"幻影分店"}<<<BOOKING>>>`

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-c", "U1", "都確認好了"),
	})

	require.Empty(t, f.bookings.created)
	require.Len(t, f.replier.replies, 1)
	require.Contains(t, f.replier.replies[0], `"幻影分店"`)
	require.Contains(t, f.replier.replies[0], "請確認店名")
	require.Zero(t, f.notifier.createdCalls)
}

func TestCompletionFailureSendsApology(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.err = errors.New("gateway timeout")

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-d", "U1", "hello"),
	})

	require.Len(t, f.replier.replies, 1)
	require.Equal(t, replyBusy, f.replier.replies[0])
	require.Empty(t, f.bookings.created)
}

func TestEmptyCompletionDistinguishedAndRecovered(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.err = ErrEmptyCompletion

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-e", "U1", "hello"),
	})

	require.Equal(t, []string{replyBusy}, f.replier.replies)
}

func TestMalformedBlockStrippedAndConversationContinues(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.reply = "我幫您整理如下 <<<BOOKING>>>{broken<<<BOOKING>>>"

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-f", "U1", "確認"),
	})

	require.Empty(t, f.bookings.created)
	require.Len(t, f.replier.replies, 1)
	require.NotContains(t, f.replier.replies[0], BookingDelimiter)
	require.NotContains(t, f.replier.replies[0], "{broken")
}

func TestMalformedBlockWithNoSurroundingTextUsesNotice(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.reply = "<<<BOOKING>>>{broken<<<BOOKING>>>"

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-g", "U1", "確認"),
	})

	require.Equal(t, []string{replyMalformedDraft}, f.replier.replies)
}

func TestPersistFailureSendsGenericTextAndNotifiesOperator(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.reply = validBlock
	f.bookings.err = errors.New("connection refused")

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-h", "U1", "確認"),
	})

	require.Len(t, f.replier.replies, 1)
	require.Equal(t, replyPersistFailed, f.replier.replies[0])
	require.Equal(t, 1, f.notifier.failedCalls)

	// The history records only the user-facing text, never error detail.
	turns := f.history.turns["U1"]
	require.Len(t, turns, 2)
	require.Equal(t, replyPersistFailed, turns[1].Content)
}

func TestHistoryAppendFailureDoesNotBlockReply(t *testing.T) {
	f := newProcessorFixture(t)
	f.llm.reply = "您好，請問需要什麼服務？"
	f.history.failAppend = true

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-i", "U1", "hi"),
	})

	require.Equal(t, []string{"您好，請問需要什麼服務？"}, f.replier.replies)
}

func TestHistoryWindowPassedToModelChronologically(t *testing.T) {
	f := newProcessorFixture(t)
	for i := 0; i < 4; i++ {
		require.NoError(t, f.history.Append(context.Background(), "U1", ChatRoleUser, fmt.Sprintf("u%d", i)))
		require.NoError(t, f.history.Append(context.Background(), "U1", ChatRoleAssistant, fmt.Sprintf("a%d", i)))
	}
	f.llm.reply = "好的"

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		textEvent("tok-j", "U1", "最新訊息"),
	})

	require.Equal(t, 1, f.llm.calls)
	msgs := f.llm.last.Messages
	// 6-turn window plus the new user message.
	require.Len(t, msgs, 7)
	require.Equal(t, "u1", msgs[0].Content)
	require.Equal(t, "最新訊息", msgs[6].Content)
	require.Equal(t, ChatRoleUser, msgs[6].Role)
	require.NotEmpty(t, f.llm.last.System)
}

func TestEmptyStoreCatalogOnLocation(t *testing.T) {
	f := newProcessorFixture(t)
	f.catalog.stores = nil

	f.processor.ProcessEvents(context.Background(), []linechannel.Event{
		locationEvent("tok-k", "U1", 25.0, 121.5),
	})

	require.Equal(t, []string{replyNoStores}, f.replier.replies)
}
