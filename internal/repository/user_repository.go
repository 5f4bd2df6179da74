package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shophub-realtime/internal/domain"
	shophub_errors "shophub-realtime/pkg/errors"
)

type PostgresUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Upsert(ctx context.Context, profile domain.UserProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "email", "updated_at"}),
		}).
		Create(&profile).Error
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserProfile{}, shophub_errors.ErrNotFound
		}
		return domain.UserProfile{}, err
	}
	return profile, nil
}
