package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/pkg/log"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Msg("failed to create user")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	return nil
}

func (r *GormUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	return &user, nil
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email)))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	return &user, nil
}

func (r *GormUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormUserRepository) Follow(ctx context.Context, userID, channelID string) error {
	user := domain.User{ID: userID}
	channel := domain.Channel{ID: channelID}

	// Association append is idempotent for existing join rows.
	if err := r.db.WithContext(ctx).Model(&user).Association("Following").Append(&channel); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *GormUserRepository) Unfollow(ctx context.Context, userID, channelID string) error {
	user := domain.User{ID: userID}
	channel := domain.Channel{ID: channelID}

	if err := r.db.WithContext(ctx).Model(&user).Association("Following").Delete(&channel); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *GormUserRepository) IsFollowing(ctx context.Context, userID, channelID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_follows").
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count > 0, nil
}

func (r *GormUserRepository) FollowedChannels(ctx context.Context, userID string) ([]domain.Channel, error) {
	user := domain.User{ID: userID}
	var channels []domain.Channel
	if err := r.db.WithContext(ctx).Model(&user).Association("Following").Find(&channels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return channels, nil
}
