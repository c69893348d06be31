package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeUserCreated    = "USER_CREATED"
	EventTypeWalletCredited = "WALLET_CREDITED"
	EventTypeWalletDebited  = "WALLET_DEBITED"
	EventTypeWalletTransfer = "WALLET_TRANSFER"
	EventTypeWalletFailed   = "WALLET_FAILED"
	EventTypeTxnRecorded    = "TRANSACTION_RECORDED"
	EventTypeUserLoggedIn   = "USER_LOGGED_IN"
	EventTypeUserLoggedOut  = "USER_LOGGED_OUT"
	EventTypeTokenRefreshed = "TOKEN_REFRESHED"
	EventTypeAuthFailed     = "AUTH_FAILED"
)

// Event topics, one per producing domain.
const (
	TopicUserEvents        = "user-events"
	TopicWalletEvents      = "wallet-events"
	TopicTransactionEvents = "transaction-events"
	TopicAuthEvents        = "auth-events"
)

// EventEnvelope is the wire format shared by all producers. EventID is
// producer-assigned and unique per logical occurrence; redelivery of the
// same EventID must be a no-op for consumers.
type EventEnvelope struct {
	EventType string         `json:"eventType"`
	EventID   string         `json:"eventId"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    *int64         `json:"userId,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// EventDate is the UTC calendar date the event aggregates under. Events
// without a timestamp fall back to the given ingestion time.
func (e *EventEnvelope) EventDate(ingestedAt time.Time) time.Time {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = ingestedAt
	}
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// Amount extracts payload["amount"] as a decimal. Missing or malformed
// values decode to zero, matching producers that omit the field.
func (e *EventEnvelope) Amount() decimal.Decimal {
	if e.Payload == nil {
		return decimal.Zero
	}
	return coerceDecimal(e.Payload["amount"])
}

// PayloadString extracts a payload field as a string.
func (e *EventEnvelope) PayloadString(key string) string {
	if e.Payload == nil {
		return ""
	}
	v, ok := e.Payload[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// PayloadUserID extracts a payload field as a user ID. Producers send
// user IDs either as JSON numbers or stringified longs.
func (e *EventEnvelope) PayloadUserID(key string) (int64, bool) {
	if e.Payload == nil {
		return 0, false
	}
	switch v := e.Payload[key].(type) {
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// PayloadBool extracts a payload field as a bool, defaulting to the
// given value when absent or malformed.
func (e *EventEnvelope) PayloadBool(key string, def bool) bool {
	if e.Payload == nil {
		return def
	}
	switch v := e.Payload[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

func coerceDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// OutboxEvent is a domain event staged for publication. Rows are written
// in the same transaction as the state change they describe and drained
// by the event publisher.
type OutboxEvent struct {
	ID          string
	Topic       string
	EventType   string
	UserID      *int64
	Payload     map[string]any
	CreatedAt   time.Time
	PublishedAt *time.Time
	Published   bool
}

// Envelope converts the staged event to its wire form.
func (o *OutboxEvent) Envelope() EventEnvelope {
	return EventEnvelope{
		EventType: o.EventType,
		EventID:   o.ID,
		Timestamp: o.CreatedAt,
		UserID:    o.UserID,
		Payload:   o.Payload,
	}
}
