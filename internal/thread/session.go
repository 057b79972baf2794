package thread

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/domain"
	"github.com/djassa/djassa-backend/internal/push"
)

var (
	ErrMissingParticipant = errors.New("both participants are required")
	ErrSelfThread         = errors.New("cannot open a thread with yourself")
	ErrAlreadyOpen        = errors.New("session already open")
)

const (
	eventBufSize     = 64
	previewLimit     = 100
	sideEffectExpiry = 5 * time.Second
)

// Store is the persistence collaborator for a session.
type Store interface {
	History(ctx context.Context, viewer, counterpart uuid.UUID, productID *uuid.UUID) ([]domain.Message, error)
	Insert(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	MarkRead(ctx context.Context, ids []uuid.UUID, recipientID uuid.UUID) error
}

// Feed is the realtime collaborator: a table-wide stream of message inserts.
// Sessions filter the stream down to their own conversation.
type Feed interface {
	Subscribe() (<-chan domain.Message, func())
}

// Session event types.
const (
	EventHistory = "history"
	EventMessage = "message"
)

// Event is what a session emits to its consumer: one EventHistory once the
// initial load settles, then one EventMessage per merged feed event.
type Event struct {
	Type      string
	ThreadKey string
	Messages  []domain.Message
	Message   *domain.Message
}

// Session keeps a live, deduplicated, chronologically loaded message list for
// one (viewer, counterpart, product) triple. The viewer's own sends are not
// appended locally; they come back through the feed like any other insert, so
// the feed stays the single source of truth for the list.
type Session struct {
	store  Store
	feed   Feed
	pusher push.Sender

	viewer      uuid.UUID
	counterpart uuid.UUID
	productID   *uuid.UUID
	key         string

	ctx    context.Context
	cancel context.CancelFunc
	ready  chan struct{}
	events chan Event

	mu       sync.Mutex
	messages []domain.Message
	seen     map[uuid.UUID]struct{}
}

func NewSession(store Store, feed Feed, pusher push.Sender, viewer, counterpart uuid.UUID, productID *uuid.UUID) *Session {
	if pusher == nil {
		pusher = push.NoopSender{}
	}
	if productID != nil {
		p := *productID
		productID = &p
	}
	return &Session{
		store:       store,
		feed:        feed,
		pusher:      pusher,
		viewer:      viewer,
		counterpart: counterpart,
		productID:   productID,
		key:         Key(viewer, counterpart, productID),
		ready:       make(chan struct{}),
		events:      make(chan Event, eventBufSize),
		seen:        make(map[uuid.UUID]struct{}),
	}
}

// Open validates the triple, subscribes to the feed and starts the history
// load in the background. Subscribing before fetching means an insert landing
// during the fetch is merged (and deduplicated) instead of missed.
func (s *Session) Open(ctx context.Context) error {
	if s.viewer == uuid.Nil || s.counterpart == uuid.Nil {
		return ErrMissingParticipant
	}
	if s.viewer == s.counterpart {
		return ErrSelfThread
	}
	if s.cancel != nil {
		return ErrAlreadyOpen
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	feedCh, unsubscribe := s.feed.Subscribe()
	go s.run(feedCh, unsubscribe)
	return nil
}

// Close tears the session down: the feed subscription is released and the
// event channel closes. Safe to call more than once.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Key returns the derived thread identifier.
func (s *Session) Key() string { return s.key }

// Ready is closed once the initial history load has settled.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// Events streams session events. Closed on teardown.
func (s *Session) Events() <-chan Event { return s.events }

// Messages returns a snapshot of the current list.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

// Send persists a message addressed to the counterpart. Empty text with no
// media is a no-op. On insert failure the local list is untouched and the
// error is returned for UI feedback; on success a push notification fires in
// the background and the message itself arrives back through the feed.
func (s *Session) Send(ctx context.Context, text string, media *domain.Media, productID *uuid.UUID) (*domain.Message, error) {
	content := ComposeContent(text, media)
	if content == "" {
		return nil, nil
	}
	if productID == nil {
		productID = s.productID
	}

	msg := &domain.Message{
		ID:          uuid.New(),
		SenderID:    s.viewer,
		RecipientID: s.counterpart,
		ProductID:   productID,
		Content:     content,
		Media:       media,
		CreatedAt:   time.Now(),
	}

	inserted, err := s.store.Insert(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	go s.notify(inserted)
	return inserted, nil
}

func (s *Session) run(feedCh <-chan domain.Message, unsubscribe func()) {
	defer close(s.events)
	defer unsubscribe()

	history, err := s.store.History(s.ctx, s.viewer, s.counterpart, s.productID)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		// Fail open: the conversation view starts empty instead of blocking.
		log.Printf("thread %s: history fetch failed: %v", s.key, err)
		history = nil
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		// Superseded while the fetch was in flight; drop the stale result.
		s.mu.Unlock()
		return
	}
	var unread []uuid.UUID
	for _, m := range history {
		s.seen[m.ID] = struct{}{}
		if m.RecipientID == s.viewer && !m.Read {
			unread = append(unread, m.ID)
		}
	}
	s.messages = history
	snapshot := append([]domain.Message(nil), s.messages...)
	s.mu.Unlock()

	close(s.ready)
	s.emit(Event{Type: EventHistory, ThreadKey: s.key, Messages: snapshot})

	if len(unread) > 0 {
		go s.markRead(unread)
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-feedCh:
			if !ok {
				return
			}
			s.merge(msg)
		}
	}
}

func (s *Session) merge(msg domain.Message) {
	if !Matches(&msg, s.viewer, s.counterpart, s.productID) {
		return
	}

	s.mu.Lock()
	if _, dup := s.seen[msg.ID]; dup {
		s.mu.Unlock()
		return
	}
	s.seen[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	if msg.RecipientID == s.viewer && !msg.Read {
		go s.markRead([]uuid.UUID{msg.ID})
	}
	s.emit(Event{Type: EventMessage, ThreadKey: s.key, Message: &msg})
}

// markRead is fire-and-forget: a failure is logged and the displayed list is
// left alone. It runs on its own context so session teardown cannot cancel an
// update already in flight.
func (s *Session) markRead(ids []uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectExpiry)
	defer cancel()
	if err := s.store.MarkRead(ctx, ids, s.viewer); err != nil {
		log.Printf("thread %s: marking %d message(s) read: %v", s.key, len(ids), err)
	}
}

func (s *Session) notify(msg *domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectExpiry)
	defer cancel()
	if err := s.pusher.Send(ctx, Notification(msg, s.key)); err != nil {
		log.Printf("thread %s: push to %s failed: %v", s.key, msg.RecipientID, err)
	}
}

// Notification builds the push payload for a freshly inserted message.
func Notification(msg *domain.Message, threadKey string) push.Notification {
	title := "Nouveau message"
	if msg.SenderDisplayName != "" {
		title = "Nouveau message de " + msg.SenderDisplayName
	}
	link := "/messages?user=" + msg.SenderID.String()
	if msg.ProductID != nil {
		link += "&product=" + msg.ProductID.String()
	}
	return push.Notification{
		RecipientID: msg.RecipientID,
		Title:       title,
		Body:        push.Preview(msg.Content, previewLimit),
		Link:        link,
		Tag:         threadKey,
	}
}

func (s *Session) emit(evt Event) {
	select {
	case s.events <- evt:
	default:
		log.Printf("thread %s: event buffer full, dropping %s", s.key, evt.Type)
	}
}
