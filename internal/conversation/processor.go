package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mmmarc2025/sparkling-service/internal/bookings"
	"github.com/mmmarc2025/sparkling-service/internal/catalog"
	"github.com/mmmarc2025/sparkling-service/internal/linechannel"
	"github.com/mmmarc2025/sparkling-service/internal/observability/metrics"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

var processorTracer = otel.Tracer("sparkling.internal.conversation")

// User-facing fallback texts, matching the bot's Traditional Chinese voice.
const (
	replyBusy           = "系統忙碌中，請稍後再試。"
	replyNoStores       = "抱歉，目前沒有營業中的店家。"
	replyPersistFailed  = "抱歉，系統建立訂單時發生錯誤，請稍後再試。"
	replyMalformedDraft = "預約資料格式有誤，請人工確認。"
)

type historyStore interface {
	LoadRecent(ctx context.Context, userID string, limit int) ([]ChatMessage, error)
	Append(ctx context.Context, userID, role, content string) error
}

type storeCatalog interface {
	ActiveStores(ctx context.Context) ([]catalog.Store, error)
	FindActiveStoreByName(ctx context.Context, name string) (*catalog.Store, error)
}

type bookingCreator interface {
	CreatePending(ctx context.Context, req bookings.CreateRequest) (*bookings.Booking, error)
}

type operatorNotifier interface {
	BookingCreated(ctx context.Context, b *bookings.Booking, storeName string)
	BookingPersistFailed(ctx context.Context, customerName, storeName string, cause error)
}

// ProcessorConfig tunes the per-message pipeline.
type ProcessorConfig struct {
	HistoryWindow     int
	MaxTokens         int
	Temperature       float32
	CompletionTimeout time.Duration
}

// Processor runs the extract-and-persist flow for each webhook event:
// build prompt, load history, complete, extract, resolve store, persist,
// reply, append history. All failures below request acceptance are
// recovered into user-safe replies here.
type Processor struct {
	prompt   *PromptBuilder
	history  historyStore
	llm      LLMClient
	stores   storeCatalog
	bookings bookingCreator
	replier  linechannel.ReplySender
	notifier operatorNotifier
	metrics  *metrics.WebhookMetrics
	logger   *logging.Logger
	cfg      ProcessorConfig
}

// NewProcessor wires the pipeline. notifier and metrics may be nil.
func NewProcessor(prompt *PromptBuilder, history historyStore, llm LLMClient, stores storeCatalog, bookingSvc bookingCreator, replier linechannel.ReplySender, notifier operatorNotifier, m *metrics.WebhookMetrics, logger *logging.Logger, cfg ProcessorConfig) *Processor {
	if prompt == nil || history == nil || llm == nil || stores == nil || bookingSvc == nil || replier == nil {
		panic("conversation: processor dependencies missing")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.5
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = 30 * time.Second
	}
	return &Processor{
		prompt:   prompt,
		history:  history,
		llm:      llm,
		stores:   stores,
		bookings: bookingSvc,
		replier:  replier,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
}

// ProcessEvents handles a webhook batch. Events are independent; a
// failure in one never aborts the rest.
func (p *Processor) ProcessEvents(ctx context.Context, events []linechannel.Event) {
	for _, ev := range events {
		switch {
		case ev.IsLocationMessage():
			p.handleLocation(ctx, ev)
		case ev.IsTextMessage():
			p.handleText(ctx, ev)
		}
	}
}

func (p *Processor) handleLocation(ctx context.Context, ev linechannel.Event) {
	ctx, span := processorTracer.Start(ctx, "conversation.location")
	defer span.End()
	started := time.Now()
	defer func() { p.metrics.ObserveWebhookLatency("location", time.Since(started).Seconds()) }()

	lat, lng := ev.Message.Latitude, ev.Message.Longitude
	span.SetAttributes(attribute.Float64("sparkling.lat", lat), attribute.Float64("sparkling.lng", lng))

	stores, err := p.stores.ActiveStores(ctx)
	if err != nil {
		p.logger.Error("failed to load stores for location event", "error", err)
		p.metrics.ObserveInbound("location", "catalog_error")
		p.reply(ctx, ev.ReplyToken, replyBusy)
		return
	}

	nearest, distKm, err := catalog.Nearest(lat, lng, stores)
	if err != nil {
		// Only ErrNoActiveStores: nothing to suggest.
		p.metrics.ObserveInbound("location", "no_stores")
		p.reply(ctx, ev.ReplyToken, replyNoStores)
		return
	}

	msg := fmt.Sprintf("📍 離您最近的是：\n%s\n%s\n(距離 %.1f km)\n\n要幫您預約這家嗎？", nearest.Name, nearest.Address, distKm)

	// Seed the conversation so the next text turn can confirm the store.
	if userID := ev.UserID(); userID != "" {
		p.appendHistory(ctx, userID, ChatRoleUser, fmt.Sprintf("[User Location: %v, %v]", lat, lng))
		p.appendHistory(ctx, userID, ChatRoleAssistant, fmt.Sprintf("System: Nearest store is %s", nearest.Name))
	}

	p.reply(ctx, ev.ReplyToken, msg)
	p.metrics.ObserveInbound("location", "processed")
}

func (p *Processor) handleText(ctx context.Context, ev linechannel.Event) {
	ctx, span := processorTracer.Start(ctx, "conversation.text")
	defer span.End()
	started := time.Now()
	defer func() { p.metrics.ObserveWebhookLatency("text", time.Since(started).Seconds()) }()

	userID := ev.UserID()
	userMessage := ev.Message.Text
	span.SetAttributes(attribute.String("sparkling.user_id", userID))

	systemPrompt := p.prompt.Build(ctx)

	var history []ChatMessage
	if userID != "" {
		loaded, err := p.history.LoadRecent(ctx, userID, p.cfg.HistoryWindow)
		if err != nil {
			p.logger.Error("failed to load chat history", "error", err, "user_id", userID)
		} else {
			history = loaded
		}
	}

	completion, err := p.complete(ctx, systemPrompt, history, userMessage)
	if err != nil {
		span.RecordError(err)
		p.logger.Error("completion failed", "error", err, "user_id", userID)
		p.metrics.ObserveCompletion("error")
		p.metrics.ObserveInbound("text", "completion_error")
		p.reply(ctx, ev.ReplyToken, replyBusy)
		return
	}
	p.metrics.ObserveCompletion("ok")

	cleaned, draft, extractErr := Extract(completion)
	if extractErr != nil {
		p.logger.Warn("booking block discarded", "error", extractErr, "user_id", userID)
		p.metrics.ObserveBooking("parse_error")
		if cleaned == "" {
			cleaned = replyMalformedDraft
		}
	}

	replyText := cleaned
	if draft != nil {
		replyText = p.resolveAndPersist(ctx, draft)
	}

	if replyText == "" {
		p.logger.Debug("empty reply after stripping, skipping send", "user_id", userID)
	} else {
		p.reply(ctx, ev.ReplyToken, replyText)
	}

	if userID != "" {
		p.appendHistory(ctx, userID, ChatRoleUser, userMessage)
		if replyText != "" {
			p.appendHistory(ctx, userID, ChatRoleAssistant, replyText)
		}
	}
	p.metrics.ObserveInbound("text", "processed")
}

// resolveAndPersist turns a draft into a pending booking row and returns
// the user-facing outcome text. An unmatched store name never falls back
// to an arbitrary store; the user is asked to correct it.
func (p *Processor) resolveAndPersist(ctx context.Context, draft *BookingDraft) string {
	store, err := p.stores.FindActiveStoreByName(ctx, draft.StoreName)
	if err != nil {
		if errors.Is(err, catalog.ErrStoreNotFound) {
			p.logger.Info("booking store unresolved", "store_name", draft.StoreName)
			p.metrics.ObserveBooking("store_unresolved")
			return fmt.Sprintf("找不到店家 \"%s\"，請確認店名是否正確。", draft.StoreName)
		}
		p.logger.Error("store lookup failed", "error", err, "store_name", draft.StoreName)
		p.metrics.ObserveBooking("persist_error")
		return replyPersistFailed
	}

	startTime, err := draft.StartTimeValue()
	if err != nil {
		// Extract already validated this; only reachable with a
		// hand-built draft.
		p.logger.Error("unparseable draft start time", "error", err)
		p.metrics.ObserveBooking("parse_error")
		return replyMalformedDraft
	}

	booking, err := p.bookings.CreatePending(ctx, bookings.CreateRequest{
		CustomerName: draft.CustomerName,
		Phone:        draft.Phone,
		ServiceType:  draft.ServiceType,
		StartTime:    startTime,
		StoreID:      &store.ID,
	})
	if err != nil {
		p.logger.Error("booking persist failed", "error", err, "store_id", store.ID)
		p.metrics.ObserveBooking("persist_error")
		if p.notifier != nil {
			p.notifier.BookingPersistFailed(ctx, draft.CustomerName, draft.StoreName, err)
		}
		return replyPersistFailed
	}

	p.metrics.ObserveBooking("created")
	p.logger.Info("booking created", "booking_id", booking.ID, "store_id", store.ID)
	if p.notifier != nil {
		p.notifier.BookingCreated(ctx, booking, store.Name)
	}

	local := startTime.In(p.prompt.Location())
	return fmt.Sprintf("✅ 預約成功！\n\n店家：%s\n時間：%s\n項目：%s\n\n店家確認後會發送通知給您。",
		store.Name, local.Format("2006/01/02 15:04"), draft.ServiceType)
}

func (p *Processor) complete(ctx context.Context, system string, history []ChatMessage, userMessage string) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: userMessage})

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CompletionTimeout)
	defer cancel()

	resp, err := p.llm.Complete(callCtx, LLMRequest{
		System:      system,
		Messages:    messages,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// reply consumes the single-use token. The token expires quickly, so
// failures are terminal for this event; they are logged, never retried.
func (p *Processor) reply(ctx context.Context, replyToken, text string) {
	if err := p.replier.Reply(ctx, replyToken, text); err != nil {
		p.logger.Error("reply delivery failed", "error", err)
	}
}

func (p *Processor) appendHistory(ctx context.Context, userID, role, content string) {
	if err := p.history.Append(ctx, userID, role, content); err != nil {
		p.logger.Error("history append failed", "error", err, "user_id", userID, "role", role)
	}
}
