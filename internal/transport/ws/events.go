package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeThreadOpen  = "thread.open"
	EventTypeThreadClose = "thread.close"
	EventTypeMessageSend = "message.send"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeThreadHistory = "thread.history"
	EventTypeMessageNew    = "message.new"
	EventTypePong          = "pong"
	EventTypeError         = "error"
)

// Event is the base envelope for all WebSocket messages.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type ThreadOpenPayload struct {
	CounterpartID uuid.UUID  `json:"counterpart_id"`
	ProductID     *uuid.UUID `json:"product_id,omitempty"`
}

type MessageSendPayload struct {
	Content   string        `json:"content"`
	Media     *domain.Media `json:"media,omitempty"`
	ProductID *uuid.UUID    `json:"product_id,omitempty"`
}

// --- Server → Client payloads ---

type ThreadHistoryPayload struct {
	ThreadKey string           `json:"thread_key"`
	Messages  []domain.Message `json:"messages"`
}

type MessageNewPayload struct {
	ThreadKey string `json:"thread_key"`
	domain.Message
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}
