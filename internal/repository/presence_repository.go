package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shophub-realtime/internal/domain"
	shophub_errors "shophub-realtime/pkg/errors"
)

type PostgresPresenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &PostgresPresenceRepository{db: db}
}

func (r *PostgresPresenceRepository) Upsert(ctx context.Context, rec domain.PresenceRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"connection_tag", "last_seen", "is_active"}),
		}).
		Create(&rec).Error
}

func (r *PostgresPresenceRepository) SetInactive(ctx context.Context, userID string, lastSeen time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.PresenceRecord{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_active": false,
			"last_seen": lastSeen,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shophub_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresPresenceRepository) ListActive(ctx context.Context) ([]domain.OnlineUser, error) {
	var users []domain.OnlineUser
	err := r.db.WithContext(ctx).
		Table("presence_records").
		Select("presence_records.user_id, user_profiles.display_name, user_profiles.email, presence_records.last_seen").
		Joins("LEFT JOIN user_profiles ON user_profiles.id = presence_records.user_id").
		Where("presence_records.is_active = ?", true).
		Order("presence_records.last_seen DESC").
		Scan(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
