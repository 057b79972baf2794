package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/djassa/djassa-backend/internal/domain"
	"github.com/djassa/djassa-backend/internal/feed"
	"github.com/djassa/djassa-backend/internal/push"
	"github.com/djassa/djassa-backend/internal/repository"
	"github.com/djassa/djassa-backend/internal/thread"
)

var (
	ErrCannotMessageSelf = errors.New("cannot send a message to yourself")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrEmptyMessage      = errors.New("message needs text or an attachment")
)

var messagesSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "djassa_messages_sent_total",
	Help: "Messages persisted through the chat service.",
})

// ChatService is the single insertion path for messages: every insert goes
// through it and is published to the feed, so thread sessions and connected
// clients observe the same stream. It also implements thread.Store.
type ChatService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	feed        *feed.Broker
	pusher      push.Sender
}

func NewChatService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, broker *feed.Broker, pusher push.Sender) *ChatService {
	if pusher == nil {
		pusher = push.NoopSender{}
	}
	return &ChatService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		feed:        broker,
		pusher:      pusher,
	}
}

// History implements thread.Store.
func (s *ChatService) History(ctx context.Context, viewer, counterpart uuid.UUID, productID *uuid.UUID) ([]domain.Message, error) {
	return s.messageRepo.ListThread(ctx, viewer, counterpart, productID)
}

// Insert implements thread.Store: persist, reload with sender info, publish.
func (s *ChatService) Insert(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	full, err := s.messageRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	if full == nil {
		full = msg
	}

	messagesSent.Inc()
	s.feed.Publish(*full)
	return full, nil
}

// MarkRead implements thread.Store.
func (s *ChatService) MarkRead(ctx context.Context, ids []uuid.UUID, recipientID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.messageRepo.MarkRead(ctx, ids, recipientID)
}

// SendMessage is the HTTP send path. Unlike session sends it validates the
// recipient against the user table before inserting.
func (s *ChatService) SendMessage(ctx context.Context, senderID, recipientID uuid.UUID, productID *uuid.UUID, text string, media *domain.Media) (*domain.Message, error) {
	if senderID == recipientID {
		return nil, ErrCannotMessageSelf
	}

	recipient, err := s.userRepo.GetByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	content := thread.ComposeContent(text, media)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	msg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		ProductID:   productID,
		Content:     content,
		Media:       media,
		CreatedAt:   time.Now(),
	}

	full, err := s.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	go s.notify(full)
	return full, nil
}

// ListThread returns a conversation's history for the viewer and batch-marks
// the viewer's unread messages read in the background.
func (s *ChatService) ListThread(ctx context.Context, viewerID, counterpartID uuid.UUID, productID *uuid.UUID) ([]domain.Message, error) {
	if viewerID == counterpartID {
		return nil, ErrCannotMessageSelf
	}

	messages, err := s.messageRepo.ListThread(ctx, viewerID, counterpartID, productID)
	if err != nil {
		return nil, err
	}

	var unread []uuid.UUID
	for _, m := range messages {
		if m.RecipientID == viewerID && !m.Read {
			unread = append(unread, m.ID)
		}
	}
	if len(unread) > 0 {
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.messageRepo.MarkRead(bg, unread, viewerID); err != nil {
				log.Printf("chat: marking %d message(s) read: %v", len(unread), err)
			}
		}()
	}

	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

func (s *ChatService) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.messageRepo.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

func (s *ChatService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.messageRepo.CountUnread(ctx, userID)
}

func (s *ChatService) notify(msg *domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	key := thread.Key(msg.SenderID, msg.RecipientID, msg.ProductID)
	if err := s.pusher.Send(ctx, thread.Notification(msg, key)); err != nil {
		log.Printf("chat: push to %s failed: %v", msg.RecipientID, err)
	}
}
