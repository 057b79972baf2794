package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/domain"
	"github.com/djassa/djassa-backend/internal/feed"
	"github.com/djassa/djassa-backend/internal/thread"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return f.users[id], nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]*domain.Message
	createErr error
	marked    chan []uuid.UUID
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages: make(map[uuid.UUID]*domain.Message),
		marked:   make(chan []uuid.UUID, 16),
	}
}

func (f *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	stored := *msg
	f.messages[msg.ID] = &stored
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok {
		out := *m
		return &out, nil
	}
	return nil, nil
}

func (f *fakeMessageRepo) ListThread(ctx context.Context, userA, userB uuid.UUID, productID *uuid.UUID) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, m := range f.messages {
		if thread.Matches(m, userA, userB, productID) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, ids []uuid.UUID, recipientID uuid.UUID) error {
	f.mu.Lock()
	for _, id := range ids {
		if m, ok := f.messages[id]; ok && m.RecipientID == recipientID {
			m.Read = true
		}
	}
	f.mu.Unlock()
	f.marked <- ids
	return nil
}

func (f *fakeMessageRepo) ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	return nil, nil
}

func (f *fakeMessageRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m.RecipientID == userID && !m.Read {
			n++
		}
	}
	return n, nil
}

func newChatFixture() (*ChatService, *fakeMessageRepo, *fakeUserRepo, *feed.Broker) {
	msgRepo := newFakeMessageRepo()
	userRepo := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	broker := feed.NewBroker()
	return NewChatService(msgRepo, userRepo, broker, nil), msgRepo, userRepo, broker
}

func addUser(repo *fakeUserRepo, role string) uuid.UUID {
	id := uuid.New()
	repo.users[id] = &domain.User{ID: id, Email: id.String() + "@djassa.ci", Username: id.String()[:8], Role: role}
	return id
}

func TestSendMessageRejectsSelf(t *testing.T) {
	svc, _, userRepo, _ := newChatFixture()
	buyer := addUser(userRepo, domain.RoleBuyer)

	_, err := svc.SendMessage(context.Background(), buyer, buyer, nil, "salut", nil)
	if !errors.Is(err, ErrCannotMessageSelf) {
		t.Errorf("got %v, want ErrCannotMessageSelf", err)
	}
}

func TestSendMessageRejectsUnknownRecipient(t *testing.T) {
	svc, _, userRepo, _ := newChatFixture()
	buyer := addUser(userRepo, domain.RoleBuyer)

	_, err := svc.SendMessage(context.Background(), buyer, uuid.New(), nil, "salut", nil)
	if !errors.Is(err, ErrRecipientNotFound) {
		t.Errorf("got %v, want ErrRecipientNotFound", err)
	}
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	svc, _, userRepo, _ := newChatFixture()
	buyer := addUser(userRepo, domain.RoleBuyer)
	seller := addUser(userRepo, domain.RoleSeller)

	_, err := svc.SendMessage(context.Background(), buyer, seller, nil, "   ", nil)
	if !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("got %v, want ErrEmptyMessage", err)
	}
}

func TestSendMessagePublishesToFeed(t *testing.T) {
	svc, _, userRepo, broker := newChatFixture()
	buyer := addUser(userRepo, domain.RoleBuyer)
	seller := addUser(userRepo, domain.RoleSeller)

	events, unsub := broker.Subscribe()
	defer unsub()

	sent, err := svc.SendMessage(context.Background(), buyer, seller, nil, "C'est disponible?", nil)
	if err != nil {
		t.Fatalf("send errored: %v", err)
	}

	select {
	case evt := <-events:
		if evt.ID != sent.ID {
			t.Error("feed carried a different message than the one sent")
		}
	case <-time.After(time.Second):
		t.Fatal("send never reached the feed")
	}
}

func TestSendMessageMediaPlaceholder(t *testing.T) {
	svc, msgRepo, userRepo, _ := newChatFixture()
	buyer := addUser(userRepo, domain.RoleBuyer)
	seller := addUser(userRepo, domain.RoleSeller)

	media := &domain.Media{URL: "https://cdn.djassa.ci/p/9", Type: domain.MediaImage, Name: "facture.pdf"}
	sent, err := svc.SendMessage(context.Background(), buyer, seller, nil, "", media)
	if err != nil {
		t.Fatalf("send errored: %v", err)
	}
	if sent.Content != "Pièce jointe : facture.pdf" {
		t.Errorf("content = %q, want media placeholder", sent.Content)
	}

	stored, _ := msgRepo.GetByID(context.Background(), sent.ID)
	if stored == nil || stored.Content == "" {
		t.Error("persisted row missing or has empty content")
	}
}

func TestListThreadMarksUnreadInBackground(t *testing.T) {
	svc, msgRepo, userRepo, _ := newChatFixture()
	buyer := addUser(userRepo, domain.RoleBuyer)
	seller := addUser(userRepo, domain.RoleSeller)

	unread := &domain.Message{ID: uuid.New(), SenderID: seller, RecipientID: buyer, Content: "a", CreatedAt: time.Now()}
	msgRepo.messages[unread.ID] = unread

	msgs, err := svc.ListThread(context.Background(), buyer, seller, nil)
	if err != nil {
		t.Fatalf("list errored: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}

	select {
	case ids := <-msgRepo.marked:
		if len(ids) != 1 || ids[0] != unread.ID {
			t.Errorf("marked %v, want [%s]", ids, unread.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("unread message was never marked read")
	}
}

func TestListThreadRejectsSelf(t *testing.T) {
	svc, _, userRepo, _ := newChatFixture()
	buyer := addUser(userRepo, domain.RoleBuyer)

	if _, err := svc.ListThread(context.Background(), buyer, buyer, nil); !errors.Is(err, ErrCannotMessageSelf) {
		t.Errorf("got %v, want ErrCannotMessageSelf", err)
	}
}
