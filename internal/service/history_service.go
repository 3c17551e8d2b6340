package service

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/campfire-tv/backend/internal/cache"
	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/repository"
	"github.com/campfire-tv/backend/pkg/log"
)

const maxPageSize = 100

// HistoryPage is one page of a channel's scrollback.
type HistoryPage struct {
	ChannelID  string                  `json:"channelId"`
	Messages   []domain.MessagePayload `json:"messages"`
	NextCursor string                  `json:"nextCursor,omitempty"`
	HasMore    bool                    `json:"hasMore"`
}

// HistoryService serves paginated chat history over HTTP, with a read-through
// cache in front of the message store.
type HistoryService interface {
	Page(ctx context.Context, channelID, cursor string, limit int, direction string) (*HistoryPage, error)
}

type historyService struct {
	messages repository.MessageRepository
	cache    cache.Cache
	cacheTTL time.Duration
	group    singleflight.Group
}

func NewHistoryService(messages repository.MessageRepository, c cache.Cache, cacheTTL time.Duration) HistoryService {
	return &historyService{
		messages: messages,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

func (s *historyService) Page(ctx context.Context, channelID, cursor string, limit int, direction string) (*HistoryPage, error) {
	if limit < 1 || limit > maxPageSize {
		limit = maxPageSize
	}
	dir := repository.ParseDirection(direction)

	// The newest page changes on every send, so it always comes from the
	// store. Older pages are immutable and safe to cache.
	cacheable := !(cursor == "" && dir == repository.DirectionBackward)
	key := cache.PageKey("history", channelID, cursor, limit, direction)

	if cacheable {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var page HistoryPage
			if err := json.Unmarshal(data, &page); err == nil {
				return &page, nil
			}
			// Corrupt entry; drop it and fall through to the store.
			_ = s.cache.Delete(ctx, key)
		}
	}

	// Collapse concurrent fetches for the same page into one store read.
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.fetch(ctx, channelID, cursor, limit, dir, cacheable, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*HistoryPage), nil
}

func (s *historyService) fetch(ctx context.Context, channelID, cursor string, limit int, dir repository.Direction, cacheable bool, key string) (*HistoryPage, error) {
	messages, nextCursor, hasMore, err := s.messages.Page(ctx, channelID, cursor, limit, dir)
	if err != nil {
		return nil, err
	}

	page := &HistoryPage{
		ChannelID:  channelID,
		Messages:   domain.MessagePayloads(messages),
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}

	if cacheable {
		if data, err := json.Marshal(page); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Str(log.FieldChannelID, channelID).Msg("history cache write failed")
			}
		}
	}

	return page, nil
}
