package relay

import (
	"context"

	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/hub"
)

// ChatRelay is the per-session protocol state machine: it consumes the
// client events (join, leave, send, disconnect) and coordinates the room
// directory and the message store. One entry point per event kind.
type ChatRelay interface {
	HandleJoin(ctx context.Context, client *hub.Client, channelID string) error
	HandleLeave(ctx context.Context, client *hub.Client, channelID string) error
	HandleChatMessage(ctx context.Context, client *hub.Client, channelID string, msg domain.InboundMessage) error
	HandleDisconnect(ctx context.Context, client *hub.Client) error

	Start(ctx context.Context) error
	Stop() error
}
