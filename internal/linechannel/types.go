package linechannel

// SignatureHeader carries the webhook signature.
const SignatureHeader = "X-Line-Signature"

// placeholderReplyToken is sent by the platform's webhook verification
// probe; events carrying it must not be replied to.
const placeholderReplyToken = "00000000000000000000000000000000"

// Message kinds within a "message" event.
const (
	MessageTypeText     = "text"
	MessageTypeLocation = "location"
)

// WebhookBody is the parsed POST body of an inbound webhook call.
type WebhookBody struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one entry of the webhook batch. Only "message" events with a
// text or location payload are acted on; everything else is skipped.
type Event struct {
	Type       string   `json:"type"`
	ReplyToken string   `json:"replyToken"`
	Timestamp  int64    `json:"timestamp"`
	Source     *Source  `json:"source"`
	Message    *Message `json:"message"`
}

// Source identifies the sender. UserID is empty for non-user sources
// (group joins, system probes).
type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Message is the kind-specific payload of a message event.
type Message struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Text      string  `json:"text"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

// IsTextMessage reports whether the event carries user text.
func (e *Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message != nil && e.Message.Type == MessageTypeText
}

// IsLocationMessage reports whether the event carries coordinates.
func (e *Event) IsLocationMessage() bool {
	return e.Type == "message" && e.Message != nil && e.Message.Type == MessageTypeLocation
}

// UserID returns the sending user's id, or "" when absent.
func (e *Event) UserID() string {
	if e.Source == nil {
		return ""
	}
	return e.Source.UserID
}
