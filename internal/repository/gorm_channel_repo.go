package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/pkg/log"
)

// GormChannelRepository implements ChannelRepository using GORM.
type GormChannelRepository struct {
	db *gorm.DB
}

func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

func (r *GormChannelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	if channel.ID == "" {
		channel.ID = uuid.New().String()
	}
	if channel.StreamKey == "" {
		channel.StreamKey = uuid.New().String()
	}

	result := r.db.WithContext(ctx).Create(channel)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Msg("failed to create channel")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldChannelID, channel.ID).Msg("channel created")
	return nil
}

func (r *GormChannelRepository) GetByID(ctx context.Context, id string) (*domain.Channel, error) {
	var channel domain.Channel
	result := r.db.WithContext(ctx).First(&channel, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	return &channel, nil
}

func (r *GormChannelRepository) List(ctx context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	result := r.db.WithContext(ctx).
		Order("is_active DESC, created_at ASC").
		Find(&channels)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	return channels, nil
}

func (r *GormChannelRepository) Update(ctx context.Context, channel *domain.Channel) error {
	result := r.db.WithContext(ctx).Model(&domain.Channel{}).
		Where("id = ?", channel.ID).
		Updates(map[string]interface{}{
			"title":       channel.Title,
			"description": channel.Description,
			"avatar_url":  channel.AvatarURL,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormChannelRepository) SyncLiveStatus(ctx context.Context, liveKeys []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(liveKeys) == 0 {
			return tx.Model(&domain.Channel{}).
				Where("is_active = ?", true).
				Update("is_active", false).Error
		}

		if err := tx.Model(&domain.Channel{}).
			Where("stream_key IN ?", liveKeys).
			Where("is_active = ?", false).
			Update("is_active", true).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Channel{}).
			Where("stream_key NOT IN ?", liveKeys).
			Where("is_active = ?", true).
			Update("is_active", false).Error
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Msg("failed to sync live status")
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
