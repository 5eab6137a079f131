package chat

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("message not found")
	QueryTimeoutDuration = time.Second * 5
)

const (
	MaxMessageLength = 2000
	DefaultPageSize  = 50
	MaxPageSize      = 200
)

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
	MessageImage MessageType = "image"
)

func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageVoice || t == MessageImage
}

type Message struct {
	ID         int64       `json:"id"`
	FromUserID int64       `json:"from_user_id"`
	ToUserID   int64       `json:"to_user_id"`
	Body       string      `json:"message"`
	Type       MessageType `json:"message_type"`
	FileURL    *string     `json:"file_url,omitempty"`
	CreatedAt  time.Time   `json:"timestamp"`
	IsRead     bool        `json:"is_read"`
	IsDeleted  bool        `json:"is_deleted"`
	IsEdited   bool        `json:"is_edited"`
	EditedAt   *time.Time  `json:"edited_at,omitempty"`
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	ConversationID  int64     `json:"conversation_id"`
	PartnerID       int64     `json:"partner_id"`
	PartnerUsername string    `json:"partner_username"`
	PartnerImageURL *string   `json:"partner_image_url"`
	LastMessage     string    `json:"last_message"`
	LastMessageType string    `json:"last_message_type"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnreadCount     int       `json:"unread_count"`
}

// OrderedPair returns a and b with the smaller id first, the form in which
// conversations are stored.
func OrderedPair(a, b int64) (int64, int64) {
	if a < b {
		return a, b
	}
	return b, a
}
