package repository

import (
	"context"
	"time"

	"github.com/campfire-tv/backend/internal/domain"
)

// Direction controls pagination order for message pages.
type Direction int

const (
	DirectionBackward Direction = iota // newest to oldest
	DirectionForward                   // oldest to newest
)

func ParseDirection(s string) Direction {
	if s == "forward" {
		return DirectionForward
	}
	return DirectionBackward
}

// MessageRepository is the durable append-only message log, partitioned by
// channel. Insertion order (the auto-increment id) is the authoritative
// ordering for a channel's messages.
type MessageRepository interface {
	// Append validates and persists one message synchronously, returning
	// the stored row with its assigned id. Empty author or content fails
	// with ErrValidation; storage failure with ErrStoreUnavailable.
	Append(ctx context.Context, channelID, author, content string, date time.Time) (*domain.Message, error)

	// RecentHistory returns up to limit most recent messages for the
	// channel in ascending insertion order (oldest first). Unknown or
	// empty channels yield an empty slice, not an error.
	RecentHistory(ctx context.Context, channelID string, limit int) ([]domain.Message, error)

	// Page returns one page of messages for cursor pagination, plus the
	// next cursor and whether more pages exist.
	Page(ctx context.Context, channelID, cursor string, limit int, dir Direction) ([]domain.Message, string, bool, error)
}

// ChannelRepository persists broadcaster channels.
type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id string) (*domain.Channel, error)
	List(ctx context.Context) ([]domain.Channel, error)
	Update(ctx context.Context, channel *domain.Channel) error

	// SyncLiveStatus marks channels whose stream key appears in liveKeys
	// as active and every other channel as inactive.
	SyncLiveStatus(ctx context.Context, liveKeys []string) error
}

// UserRepository persists viewer/broadcaster accounts and follow relations.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	Follow(ctx context.Context, userID, channelID string) error
	Unfollow(ctx context.Context, userID, channelID string) error
	IsFollowing(ctx context.Context, userID, channelID string) (bool, error)
	FollowedChannels(ctx context.Context, userID string) ([]domain.Channel, error)
}
