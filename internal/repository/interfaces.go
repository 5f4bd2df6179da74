package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shophub-realtime/internal/domain"
)

type ConversationRepository interface {
	Create(ctx context.Context, c *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	GetOpenByShopper(ctx context.Context, shopperID string) (domain.Conversation, error)
	ListOpen(ctx context.Context, limit int) ([]domain.Conversation, error)

	Close(ctx context.Context, id uuid.UUID) error
	AssignOperator(ctx context.Context, id uuid.UUID, operatorID string) error

	// ClaimAutoReply flips auto_replied_at from NULL to now and reports
	// whether this call won the claim. At most one caller ever does.
	ClaimAutoReply(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error

	// IncrementUnread bumps unread_count atomically in SQL so concurrent
	// sends never lose an increment.
	IncrementUnread(ctx context.Context, id uuid.UUID) error
	SetUnreadCount(ctx context.Context, id uuid.UUID, count int64) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	History(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error)

	// MarkAllRead flips every unread message in the conversation that was not
	// authored by viewerID and returns the number of rows touched.
	MarkAllRead(ctx context.Context, conversationID uuid.UUID, viewerID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, conversationID uuid.UUID, viewerID string) (int64, error)
}

type PresenceRepository interface {
	Upsert(ctx context.Context, rec domain.PresenceRecord) error
	SetInactive(ctx context.Context, userID string, lastSeen time.Time) error
	ListActive(ctx context.Context) ([]domain.OnlineUser, error)
}

type UserRepository interface {
	Upsert(ctx context.Context, profile domain.UserProfile) error
	GetByID(ctx context.Context, id string) (domain.UserProfile, error)
}

// Repositories bundles the concrete Postgres implementations.
type Repositories struct {
	Conversations ConversationRepository
	Messages      MessageRepository
	Presence      PresenceRepository
	Users         UserRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db),
		Presence:      NewPresenceRepository(db),
		Users:         NewUserRepository(db),
	}
}
