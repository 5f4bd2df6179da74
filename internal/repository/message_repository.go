package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shophub-realtime/internal/domain"
	shophub_errors "shophub-realtime/pkg/errors"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *domain.Message) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return shophub_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

// History returns the most recent limit messages, oldest first.
func (r *PostgresMessageRepository) History(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order for hydration.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *PostgresMessageRepository) MarkAllRead(ctx context.Context, conversationID uuid.UUID, viewerID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND is_read = ? AND sender_id <> ?", conversationID, false, viewerID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, conversationID uuid.UUID, viewerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND is_read = ? AND sender_id <> ?", conversationID, false, viewerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
