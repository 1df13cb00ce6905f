package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BookingDelimiter wraps the structured block inside a completion. It
// appears twice, before and after the JSON payload.
const BookingDelimiter = "<<<BOOKING>>>"

// BookingDraft is the structured record the model emits once every
// booking field has been collected and confirmed. It is transient; only a
// resolved draft ever becomes a booking row.
type BookingDraft struct {
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	ServiceType  string `json:"service_type"`
	StartTime    string `json:"start_time"`
	StoreName    string `json:"store_name,omitempty"`
}

// StartTimeValue parses the draft's ISO-8601 timestamp.
func (d *BookingDraft) StartTimeValue() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, d.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("conversation: invalid start_time %q: %w", d.StartTime, err)
	}
	return t, nil
}

// Extract scans completion text for a delimited booking block. The block
// span is always removed from the cleaned reply, whether or not it parses,
// so raw structured syntax never reaches the end user. A malformed block
// yields a nil draft and a non-nil error for logging; the caller continues
// with the cleaned text. Text without a delimiter is returned unchanged.
func Extract(text string) (cleaned string, draft *BookingDraft, err error) {
	open := strings.Index(text, BookingDelimiter)
	if open < 0 {
		return text, nil, nil
	}

	rest := text[open+len(BookingDelimiter):]
	closeIdx := strings.Index(rest, BookingDelimiter)
	if closeIdx < 0 {
		// Unpaired delimiter: drop everything from the open token on.
		return strings.TrimSpace(text[:open]), nil, fmt.Errorf("conversation: unterminated booking block")
	}

	inner := rest[:closeIdx]
	cleaned = strings.TrimSpace(text[:open] + rest[closeIdx+len(BookingDelimiter):])

	draft, err = parseDraft(inner)
	if err != nil {
		return cleaned, nil, err
	}
	return cleaned, draft, nil
}

func parseDraft(raw string) (*BookingDraft, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var draft BookingDraft
	if err := dec.Decode(&draft); err != nil {
		return nil, fmt.Errorf("conversation: malformed booking block: %w", err)
	}

	switch {
	case strings.TrimSpace(draft.CustomerName) == "":
		return nil, fmt.Errorf("conversation: booking block missing customer_name")
	case strings.TrimSpace(draft.Phone) == "":
		return nil, fmt.Errorf("conversation: booking block missing phone")
	case strings.TrimSpace(draft.ServiceType) == "":
		return nil, fmt.Errorf("conversation: booking block missing service_type")
	case strings.TrimSpace(draft.StartTime) == "":
		return nil, fmt.Errorf("conversation: booking block missing start_time")
	}
	if _, err := draft.StartTimeValue(); err != nil {
		return nil, err
	}
	return &draft, nil
}
