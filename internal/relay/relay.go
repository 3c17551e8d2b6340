package relay

import (
	"context"
	"errors"
	"time"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/firehose"
	"github.com/campfire-tv/backend/internal/hub"
	"github.com/campfire-tv/backend/internal/presence"
	"github.com/campfire-tv/backend/internal/repository"
	"github.com/campfire-tv/backend/pkg/log"
)

type chatRelay struct {
	hub          *hub.Hub
	messages     repository.MessageRepository
	presence     presence.Registry
	producer     firehose.Producer
	historyLimit int
}

func NewChatRelay(
	h *hub.Hub,
	messages repository.MessageRepository,
	reg presence.Registry,
	producer firehose.Producer,
	historyLimit int,
) ChatRelay {
	if historyLimit < 1 {
		historyLimit = 100
	}
	return &chatRelay{
		hub:          h,
		messages:     messages,
		presence:     reg,
		producer:     producer,
		historyLimit: historyLimit,
	}
}

// HandleJoin registers the session in the channel's room and replays recent
// history to the joining session only. Registration happens before the
// history fetch, so a broadcast racing the fetch can duplicate the history
// tail; clients reconcile by message id. Joining a channel twice is a no-op
// for membership and replays history again.
func (s *chatRelay) HandleJoin(ctx context.Context, c *hub.Client, channelID string) error {
	if channelID == "" {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "channelId is required", ""))
	}

	s.hub.Join(channelID, c)
	c.Session.Join(channelID)
	s.publishPresence(ctx, channelID)

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldSessionID, c.ID).Str(log.FieldChannelID, channelID).Msg("session joined channel")

	history, err := s.messages.RecentHistory(ctx, channelID, s.historyLimit)
	if err != nil {
		l.Error().Err(err).Str(log.FieldChannelID, channelID).Msg("history fetch failed")
		return c.SendEvent(&domain.ChatHistoryEvent{
			Type:          domain.EventChatHistory,
			ChannelID:     channelID,
			Messages:      []domain.MessagePayload{},
			ErrorOccurred: true,
		})
	}

	return c.SendEvent(&domain.ChatHistoryEvent{
		Type:      domain.EventChatHistory,
		ChannelID: channelID,
		Messages:  domain.MessagePayloads(history),
	})
}

// HandleLeave removes the session from the channel's room. Leaving a channel
// the session never joined is a no-op.
func (s *chatRelay) HandleLeave(ctx context.Context, c *hub.Client, channelID string) error {
	if channelID == "" {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "channelId is required", ""))
	}

	s.hub.Leave(channelID, c)
	c.Session.Leave(channelID)
	s.publishPresence(ctx, channelID)

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldSessionID, c.ID).Str(log.FieldChannelID, channelID).Msg("session left channel")
	return nil
}

// HandleChatMessage persists the message and then broadcasts the stored copy
// (with its assigned id) to every session in the room, sender included. If
// the store rejects or fails the write, nothing is broadcast and only the
// sender hears about it.
func (s *chatRelay) HandleChatMessage(ctx context.Context, c *hub.Client, channelID string, msg domain.InboundMessage) error {
	if !c.Session.Joined(channelID) {
		return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeNotJoined, "join the channel before sending", channelID))
	}

	stored, err := s.messages.Append(ctx, channelID, msg.Author, msg.Content, parseClientDate(msg.Date))
	if err != nil {
		l := log.Ctx(ctx)
		switch {
		case errors.Is(err, repository.ErrValidation):
			return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidation, "author and content must not be empty", channelID))
		default:
			l.Error().Err(err).Str(log.FieldChannelID, channelID).Msg("message append failed")
			return c.SendEvent(domain.NewErrorEvent(domain.ErrCodeStoreUnavailable, "message was not sent", channelID))
		}
	}

	// Best-effort firehose publish, strictly after the durable write.
	if err := s.producer.Produce(ctx, stored); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Uint(log.FieldMessageID, stored.ID).Msg("firehose publish failed")
	}

	return s.hub.Broadcast(channelID, &domain.NewMessageEvent{
		Type:      domain.EventNewMessage,
		ChannelID: channelID,
		Message:   stored.Payload(),
	})
}

// HandleDisconnect removes the session from every room it joined. A store
// write already in flight for this session is not cancelled; only future
// delivery to this session stops.
func (s *chatRelay) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	channels := c.Session.Clear()
	s.hub.Unregister(c)
	for _, channelID := range channels {
		s.publishPresence(ctx, channelID)
	}

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldSessionID, c.ID).Int("channels", len(channels)).Msg("session disconnected")
	return nil
}

func (s *chatRelay) Start(ctx context.Context) error {
	return s.presence.StartHeartbeat(ctx)
}

func (s *chatRelay) Stop() error {
	s.presence.StopHeartbeat()
	if err := s.producer.Close(); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to close firehose producer")
	}
	return nil
}

func (s *chatRelay) publishPresence(ctx context.Context, channelID string) {
	if err := s.presence.Publish(ctx, channelID, s.hub.RoomSize(channelID)); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldChannelID, channelID).Msg("presence publish failed")
	}
}

// parseClientDate parses the advisory client timestamp; a missing or
// malformed value falls back to server time at append.
func parseClientDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
