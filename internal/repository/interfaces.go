package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListThread returns both directions of the pair, exact product match
	// (nil matches only messages with no product), ascending by created_at.
	ListThread(ctx context.Context, userA, userB uuid.UUID, productID *uuid.UUID) ([]domain.Message, error)
	// MarkRead flips read to true for the given ids, constrained to rows
	// addressed to recipientID that are still unread.
	MarkRead(ctx context.Context, ids []uuid.UUID, recipientID uuid.UUID) error
	ListConversations(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}
