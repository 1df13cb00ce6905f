package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmmarc2025/sparkling-service/internal/catalog"
	"github.com/mmmarc2025/sparkling-service/internal/settings"
	"github.com/mmmarc2025/sparkling-service/pkg/logging"
)

// defaultSystemPrompt is the built-in assistant persona used when the
// admin console has not stored one.
const defaultSystemPrompt = "你是一位專業的 WashCar 汽車美容服務助理。請用繁體中文回答。"

type settingsReader interface {
	GetOrDefault(ctx context.Context, key, fallback string) string
}

type catalogReader interface {
	ActiveServices(ctx context.Context) ([]catalog.Service, error)
	ActiveStores(ctx context.Context) ([]catalog.Store, error)
}

// PromptBuilder assembles the per-turn system instruction from the stored
// base prompt, the live catalog and the current local clock. Output
// depends only on that state, never on conversation history, so it is
// regenerated for every message.
type PromptBuilder struct {
	settings settingsReader
	catalog  catalogReader
	location *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

// NewPromptBuilder creates a builder. tz names the booking timezone
// (Asia/Taipei in production); an unloadable zone falls back to a fixed
// UTC+8 offset rather than failing startup.
func NewPromptBuilder(settingsStore settingsReader, catalogRepo catalogReader, tz string, logger *logging.Logger) *PromptBuilder {
	if settingsStore == nil {
		panic("conversation: settings store required")
	}
	if catalogRepo == nil {
		panic("conversation: catalog repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("unknown booking timezone, using fixed UTC+8", "tz", tz, "error", err)
		loc = time.FixedZone("UTC+8", 8*60*60)
	}
	return &PromptBuilder{
		settings: settingsStore,
		catalog:  catalogRepo,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
}

// Build returns the full system instruction for the next completion call.
// Catalog read failures degrade to an empty section instead of blocking
// the reply.
func (b *PromptBuilder) Build(ctx context.Context) string {
	base := b.settings.GetOrDefault(ctx, settings.SystemPromptKey, defaultSystemPrompt)

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n[SERVICES]\n")

	services, err := b.catalog.ActiveServices(ctx)
	if err != nil {
		b.logger.Error("failed to load services for prompt", "error", err)
	}
	for _, svc := range services {
		if svc.Category == catalog.CategoryTiered {
			sb.WriteString(fmt.Sprintf("- %s: 小型車 %s / 中型車 %s / 大型車 %s\n",
				svc.Name, formatPrice(svc.PriceSmall), formatPrice(svc.PriceMedium), formatPrice(svc.PriceLarge)))
		} else {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", svc.Name, formatPrice(svc.PriceFlat)))
		}
	}

	sb.WriteString("\n[AVAILABLE STORES]\n")
	stores, err := b.catalog.ActiveStores(ctx)
	if err != nil {
		b.logger.Error("failed to load stores for prompt", "error", err)
	}
	for _, store := range stores {
		sb.WriteString(fmt.Sprintf("- %s (ID: %s, Addr: %s)\n", store.Name, store.ID, store.Address))
	}

	now := b.now().In(b.location)
	sb.WriteString("\n[CURRENT TIME]\n")
	sb.WriteString(fmt.Sprintf("Now: %s (Taiwan Time)\n", now.Format("2006/01/02 15:04:05")))

	sb.WriteString(`
[BOOKING RULES]
To make a booking, you MUST identify 5 fields. If any is missing, ASK the user.
1. Customer Name
2. Phone
3. Service Name
4. Time (ISO 8601 format with +08:00)
5. **Store Name** (MUST EXACTLY match one from [AVAILABLE STORES])

If the user says "nearest store" or sends location, ask them to confirm the store name I suggest.

[OUTPUT FORMAT]
If ALL 5 fields are collected and confirmed:
Output ONLY this JSON block wrapped in ` + BookingDelimiter + `:
` + BookingDelimiter + `
{
  "customer_name": "...",
  "phone": "...",
  "service_type": "...",
  "start_time": "2024-XX-XXTHH:MM:00+08:00",
  "store_name": "..."
}
` + BookingDelimiter + `

Otherwise, reply naturally to help the user.
`)

	return sb.String()
}

// Location returns the booking timezone used for clock rendering.
func (b *PromptBuilder) Location() *time.Location {
	return b.location
}

func formatPrice(p *float64) string {
	if p == nil {
		return "洽詢"
	}
	return "$" + strconv.FormatFloat(*p, 'f', -1, 64)
}
