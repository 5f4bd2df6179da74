package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shophub-realtime/internal/domain"
	shophub_errors "shophub-realtime/pkg/errors"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *domain.Conversation) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return shophub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, shophub_errors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetOpenByShopper(ctx context.Context, shopperID string) (domain.Conversation, error) {
	var c domain.Conversation
	err := r.db.WithContext(ctx).
		Where("shopper_id = ? AND status = ?", shopperID, domain.ConversationOpen).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Conversation{}, shophub_errors.ErrNotFound
		}
		return domain.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListOpen(ctx context.Context, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	var conversations []domain.Conversation
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.ConversationOpen).
		Order("last_message_at DESC NULLS LAST").
		Limit(limit).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *PostgresConversationRepository) Close(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND status = ?", id, domain.ConversationOpen).
		Updates(map[string]interface{}{
			"status":     domain.ConversationClosed,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shophub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) AssignOperator(ctx context.Context, id uuid.UUID, operatorID string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"operator_id": operatorID,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shophub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) ClaimAutoReply(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND auto_replied_at IS NULL", id).
		Update("auto_replied_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresConversationRepository) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shophub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) IncrementUnread(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("unread_count", gorm.Expr("unread_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shophub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) SetUnreadCount(ctx context.Context, id uuid.UUID, count int64) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("unread_count", count)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shophub_errors.ErrNotFound
	}
	return nil
}
