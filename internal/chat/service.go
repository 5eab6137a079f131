// Package chat sends direct messages between users and mirrors every change
// to both sides over the chat hub.
package chat

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"carrent/internal/database"
	chatstore "carrent/internal/domain/chat"
	"carrent/internal/realtime"

	"go.uber.org/zap"
)

var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrMessageTooLong    = errors.New("message exceeds 2000 characters")
	ErrInvalidType       = errors.New("unknown message type")
	ErrMissingFile       = errors.New("voice and image messages need a file url")
	ErrSelfMessage       = errors.New("cannot message yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrMessageNotFound   = chatstore.ErrNotFound
	ErrNotAuthor         = errors.New("only the author can change a message")
	ErrNotEditable       = errors.New("only text messages can be edited")
)

const (
	EventReceiveMessage    = "ReceiveMessage"
	EventMessageSent       = "MessageSent"
	EventMessageEdited     = "MessageEdited"
	EventMessageDeleted    = "MessageDeleted"
	EventMessagesRead      = "MessagesRead"
	EventUserTyping        = "UserTyping"
	EventUserStoppedTyping = "UserStoppedTyping"
	EventUserConnected     = "UserConnected"
	EventUserDisconnected  = "UserDisconnected"
	EventOnlineUsers       = "OnlineUsers"
	EventUnreadCount       = "UnreadMessagesCount"
	EventError             = "Error"
)

type Hub interface {
	SendToUser(userID int64, ev realtime.Event) int
	SendToOthers(exceptUserID int64, ev realtime.Event) int
	IsOnline(userID int64) bool
	OnlineUsers() []int64
}

// Pusher reaches users who have no open chat connection.
type Pusher interface {
	PushChatMessage(ctx context.Context, toUserID, fromUserID int64, title, preview string) error
}

type Service struct {
	store  chatstore.Store
	hub    Hub
	pusher Pusher
	logger *zap.SugaredLogger
}

func NewService(store chatstore.Store, hub Hub, pusher Pusher, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, hub: hub, pusher: pusher, logger: logger}
}

type Outgoing struct {
	ToUserID int64                 `json:"to_user_id" validate:"required,gt=0"`
	Body     string                `json:"message" validate:"max=2000"`
	Type     chatstore.MessageType `json:"message_type"`
	FileURL  *string               `json:"file_url"`
}

func (o *Outgoing) normalize() error {
	o.Body = strings.TrimSpace(o.Body)
	if o.Type == "" {
		o.Type = chatstore.MessageText
	}
	if !o.Type.Valid() {
		return ErrInvalidType
	}
	if utf8.RuneCountInString(o.Body) > chatstore.MaxMessageLength {
		return ErrMessageTooLong
	}
	if o.Type == chatstore.MessageText {
		if o.Body == "" {
			return ErrEmptyMessage
		}
		return nil
	}
	if o.FileURL == nil || *o.FileURL == "" {
		return ErrMissingFile
	}
	return nil
}

func (s *Service) Send(ctx context.Context, fromUserID int64, out Outgoing) (*chatstore.Message, error) {
	if err := out.normalize(); err != nil {
		return nil, err
	}
	if out.ToUserID == fromUserID {
		return nil, ErrSelfMessage
	}

	m := &chatstore.Message{
		FromUserID: fromUserID,
		ToUserID:   out.ToUserID,
		Body:       out.Body,
		Type:       out.Type,
		FileURL:    out.FileURL,
	}
	if err := s.store.InsertMessage(ctx, m); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	if _, err := s.store.TouchConversation(ctx, fromUserID, out.ToUserID); err != nil {
		s.logger.Warnw("touch conversation", "from", fromUserID, "to", out.ToUserID, "error", err)
	}

	s.hub.SendToUser(out.ToUserID, realtime.Event{Type: EventReceiveMessage, Payload: m})
	s.hub.SendToUser(fromUserID, realtime.Event{Type: EventMessageSent, Payload: m})

	if !s.hub.IsOnline(out.ToUserID) && s.pusher != nil {
		if err := s.pusher.PushChatMessage(ctx, out.ToUserID, fromUserID, "New message", preview(m)); err != nil {
			s.logger.Warnw("chat push", "to", out.ToUserID, "error", err)
		}
	}
	return m, nil
}

func preview(m *chatstore.Message) string {
	switch m.Type {
	case chatstore.MessageVoice:
		return "Voice message"
	case chatstore.MessageImage:
		return "Photo"
	}
	if utf8.RuneCountInString(m.Body) > 100 {
		return string([]rune(m.Body)[:100]) + "..."
	}
	return m.Body
}

func (s *Service) authored(ctx context.Context, userID, messageID int64) (*chatstore.Message, error) {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted {
		return nil, ErrMessageNotFound
	}
	if m.FromUserID != userID {
		return nil, ErrNotAuthor
	}
	return m, nil
}

func (s *Service) Edit(ctx context.Context, userID, messageID int64, body string) (*chatstore.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > chatstore.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	m, err := s.authored(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if m.Type != chatstore.MessageText {
		return nil, ErrNotEditable
	}

	edited, err := s.store.EditMessage(ctx, messageID, body)
	if err != nil {
		return nil, err
	}

	ev := realtime.Event{Type: EventMessageEdited, Payload: edited}
	s.hub.SendToUser(edited.ToUserID, ev)
	s.hub.SendToUser(edited.FromUserID, ev)
	return edited, nil
}

func (s *Service) Delete(ctx context.Context, userID, messageID int64) error {
	m, err := s.authored(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if err := s.store.SoftDeleteMessage(ctx, messageID); err != nil {
		return err
	}

	ev := realtime.Event{Type: EventMessageDeleted, Payload: map[string]int64{"message_id": messageID}}
	s.hub.SendToUser(m.ToUserID, ev)
	s.hub.SendToUser(m.FromUserID, ev)
	return nil
}

// MarkRead marks everything partnerID sent to readerID as read.
func (s *Service) MarkRead(ctx context.Context, readerID, partnerID int64) (int64, error) {
	n, err := s.store.MarkRead(ctx, readerID, partnerID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.hub.SendToUser(partnerID, realtime.Event{Type: EventMessagesRead, Payload: map[string]int64{"reader_id": readerID}})
	}
	if count, err := s.store.UnreadCount(ctx, readerID); err == nil {
		s.hub.SendToUser(readerID, realtime.Event{Type: EventUnreadCount, Payload: count})
	}
	return n, nil
}

func (s *Service) History(ctx context.Context, userID, partnerID, beforeID int64, limit int) ([]chatstore.Message, error) {
	return s.store.History(ctx, userID, partnerID, beforeID, limit)
}

func (s *Service) Conversations(ctx context.Context, userID int64) ([]chatstore.ConversationSummary, error) {
	return s.store.Conversations(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.store.UnreadCount(ctx, userID)
}

func (s *Service) Typing(fromUserID, toUserID int64, typing bool) {
	ev := realtime.Event{Type: EventUserStoppedTyping, Payload: map[string]int64{"user_id": fromUserID}}
	if typing {
		ev.Type = EventUserTyping
	}
	s.hub.SendToUser(toUserID, ev)
}

func (s *Service) OnlineUsers() []int64 {
	return s.hub.OnlineUsers()
}
