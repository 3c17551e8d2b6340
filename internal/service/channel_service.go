package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/presence"
	"github.com/campfire-tv/backend/internal/repository"
	"github.com/campfire-tv/backend/pkg/log"
	"github.com/campfire-tv/backend/pkg/storage"
)

// ChannelUpdate carries the settings fields a broadcaster may change.
// Nil fields are left untouched.
type ChannelUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// ChannelService assembles the channel directory and detail views and owns
// broadcaster settings mutations.
type ChannelService interface {
	List(ctx context.Context) ([]domain.Channel, error)
	Details(ctx context.Context, channelID, viewerUserID string) (*domain.ChannelDetails, error)
	UpdateSettings(ctx context.Context, userID, channelID string, update ChannelUpdate) (*domain.Channel, error)
	UploadAvatar(ctx context.Context, userID, channelID string, r io.Reader, size int64, contentType, filename string) (string, error)
	StreamKey(ctx context.Context, userID, channelID string) (string, error)

	Follow(ctx context.Context, userID, channelID string) error
	Unfollow(ctx context.Context, userID, channelID string) error
	FollowedChannels(ctx context.Context, userID string) ([]domain.Channel, error)
}

type channelService struct {
	channels     repository.ChannelRepository
	users        repository.UserRepository
	messages     repository.MessageRepository
	presence     presence.Registry
	store        storage.Storage
	detailsLimit int
}

func NewChannelService(
	channels repository.ChannelRepository,
	users repository.UserRepository,
	messages repository.MessageRepository,
	reg presence.Registry,
	store storage.Storage,
	detailsLimit int,
) ChannelService {
	if detailsLimit < 1 {
		detailsLimit = 100
	}
	return &channelService{
		channels:     channels,
		users:        users,
		messages:     messages,
		presence:     reg,
		store:        store,
		detailsLimit: detailsLimit,
	}
}

func (s *channelService) List(ctx context.Context) ([]domain.Channel, error) {
	return s.channels.List(ctx)
}

// Details returns the channel with live viewer count, the caller's follow
// state, and recent chat. Presence and follow lookups are best-effort: a
// Redis hiccup degrades the counters rather than failing the page.
func (s *channelService) Details(ctx context.Context, channelID, viewerUserID string) (*domain.ChannelDetails, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	details := &domain.ChannelDetails{Channel: *channel}

	viewers, err := s.presence.Viewers(ctx, channelID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldChannelID, channelID).Msg("viewer count lookup failed")
	}
	details.Viewers = viewers

	if viewerUserID != "" {
		following, err := s.users.IsFollowing(ctx, viewerUserID, channelID)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldChannelID, channelID).Msg("follow state lookup failed")
		}
		details.Following = following
	}

	messages, err := s.messages.RecentHistory(ctx, channelID, s.detailsLimit)
	if err != nil {
		return nil, err
	}
	details.Messages = domain.MessagePayloads(messages)

	return details, nil
}

func (s *channelService) UpdateSettings(ctx context.Context, userID, channelID string, update ChannelUpdate) (*domain.Channel, error) {
	channel, err := s.ownedChannel(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title must not be empty", repository.ErrValidation)
		}
		channel.Title = title
	}
	if update.Description != nil {
		channel.Description = strings.TrimSpace(*update.Description)
	}

	if err := s.channels.Update(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *channelService) UploadAvatar(ctx context.Context, userID, channelID string, r io.Reader, size int64, contentType, filename string) (string, error) {
	channel, err := s.ownedChannel(ctx, userID, channelID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return "", fmt.Errorf("%w: unsupported avatar format %q", repository.ErrValidation, ext)
	}

	key := fmt.Sprintf("avatars/%s/%s%s", channelID, uuid.NewString(), ext)
	if err := s.store.Write(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("failed to store avatar: %w", err)
	}

	url, err := s.store.GetURL(ctx, key, 24*time.Hour)
	if err != nil {
		return "", fmt.Errorf("failed to resolve avatar url: %w", err)
	}

	channel.AvatarURL = url
	if err := s.channels.Update(ctx, channel); err != nil {
		return "", err
	}
	return url, nil
}

// StreamKey reveals the ingest key to the channel's owner only.
func (s *channelService) StreamKey(ctx context.Context, userID, channelID string) (string, error) {
	channel, err := s.ownedChannel(ctx, userID, channelID)
	if err != nil {
		return "", err
	}
	return channel.StreamKey, nil
}

func (s *channelService) Follow(ctx context.Context, userID, channelID string) error {
	if _, err := s.channels.GetByID(ctx, channelID); err != nil {
		return err
	}
	return s.users.Follow(ctx, userID, channelID)
}

func (s *channelService) Unfollow(ctx context.Context, userID, channelID string) error {
	return s.users.Unfollow(ctx, userID, channelID)
}

func (s *channelService) FollowedChannels(ctx context.Context, userID string) ([]domain.Channel, error) {
	return s.users.FollowedChannels(ctx, userID)
}

func (s *channelService) ownedChannel(ctx context.Context, userID, channelID string) (*domain.Channel, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ChannelID != channelID {
		return nil, ErrForbidden
	}
	return s.channels.GetByID(ctx, channelID)
}
