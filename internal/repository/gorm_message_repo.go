package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Append(ctx context.Context, channelID, author, content string, date time.Time) (*domain.Message, error) {
	if strings.TrimSpace(author) == "" {
		return nil, fmt.Errorf("%w: author must not be empty", ErrValidation)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrValidation)
	}
	if channelID == "" {
		return nil, fmt.Errorf("%w: channel id must not be empty", ErrValidation)
	}
	if date.IsZero() {
		date = time.Now().UTC()
	}

	msg := &domain.Message{
		ChannelID: channelID,
		Author:    author,
		Content:   content,
		Date:      date,
	}

	result := r.db.WithContext(ctx).Create(msg)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldChannelID, channelID).Msg("failed to append message")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}

	return msg, nil
}

func (r *GormMessageRepository) RecentHistory(ctx context.Context, channelID string, limit int) ([]domain.Message, error) {
	if limit < 1 {
		limit = 100
	}

	var messages []domain.Message
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("id DESC").
		Limit(limit).
		Find(&messages)
	if result.Error != nil {
		l := log.Ctx(ctx)
		l.Error().Err(result.Error).Str(log.FieldChannelID, channelID).Msg("failed to load history")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}

	// Query returns newest first; history is replayed oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *GormMessageRepository) Page(ctx context.Context, channelID, cursor string, limit int, dir Direction) ([]domain.Message, string, bool, error) {
	// Query limit + 1 to determine if there are more results.
	queryLimit := limit + 1

	query := r.db.WithContext(ctx).Where("channel_id = ?", channelID)

	if cursor != "" {
		cursorID, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return nil, "", false, fmt.Errorf("%w: invalid cursor %q", ErrValidation, cursor)
		}
		if dir == DirectionBackward {
			query = query.Where("id < ?", cursorID)
		} else {
			query = query.Where("id > ?", cursorID)
		}
	}

	if dir == DirectionBackward {
		query = query.Order("id DESC")
	} else {
		query = query.Order("id ASC")
	}

	var messages []domain.Message
	if err := query.Limit(queryLimit).Find(&messages).Error; err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldChannelID, channelID).Msg("failed to page messages")
		return nil, "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	var nextCursor string
	if len(messages) > 0 {
		nextCursor = strconv.FormatUint(uint64(messages[len(messages)-1].ID), 10)
	}

	return messages, nextCursor, hasMore, nil
}
