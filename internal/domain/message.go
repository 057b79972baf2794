package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MediaImage = "image"
	MediaVideo = "video"
)

// Media is an optional attachment on a message.
type Media struct {
	URL  string `json:"url"`
	Type string `json:"type"` // "image" | "video"
	Name string `json:"name,omitempty"`
}

// Message is a single buyer↔seller chat message, optionally scoped to a product.
// Messages are immutable after insert; only the Read flag changes, and only the
// recipient may flip it (false → true).
type Message struct {
	ID          uuid.UUID  `json:"id"`
	SenderID    uuid.UUID  `json:"sender_id"`
	RecipientID uuid.UUID  `json:"recipient_id"`
	ProductID   *uuid.UUID `json:"product_id,omitempty"`
	Content     string     `json:"content"`
	Media       *Media     `json:"media,omitempty"`
	Read        bool       `json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
	// Joined fields
	SenderUsername    string `json:"sender_username,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

// Conversation is a derived view: the latest message of each thread a user
// participates in. It is never persisted; the thread key is recomputed from
// the participant pair and the product id.
type Conversation struct {
	ThreadKey            string     `json:"thread_key"`
	OtherUserID          uuid.UUID  `json:"other_user_id"`
	OtherUserUsername    string     `json:"other_username"`
	OtherUserDisplayName string     `json:"other_display_name"`
	ProductID            *uuid.UUID `json:"product_id,omitempty"`
	LastMessage          Message    `json:"last_message"`
	UnreadCount          int        `json:"unread_count"`
}
