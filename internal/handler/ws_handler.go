package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/campfire-tv/backend/internal/config"
	"github.com/campfire-tv/backend/internal/domain"
	"github.com/campfire-tv/backend/internal/hub"
	"github.com/campfire-tv/backend/internal/relay"
	"github.com/campfire-tv/backend/pkg/log"
)

// WSHandler upgrades chat connections and dispatches the event envelopes to
// the relay.
type WSHandler struct {
	hub      *hub.Hub
	relay    relay.ChatRelay
	wsConfig config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, r relay.ChatRelay, wsConfig config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		relay:    r,
		wsConfig: wsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is enforced at the edge
			},
		},
	}
}

// Serve handles GET /ws. The connection is anonymous; chat identity is the
// client-supplied author field on each message.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.NewString(), h.hub, conn, h.wsConfig)
	h.hub.Register(client)

	l := log.Ctx(c.Request.Context())
	l.Info().Str(log.FieldSessionID, client.ID).Msg("websocket session opened")

	ctx := log.WithLogger(context.Background(), l)

	go client.WritePump()
	client.ReadPump(func(c *hub.Client, data []byte) {
		h.dispatch(ctx, c, data)
	})

	if err := h.relay.HandleDisconnect(ctx, client); err != nil {
		l.Warn().Err(err).Str(log.FieldSessionID, client.ID).Msg("disconnect cleanup failed")
	}
}

func (h *WSHandler) dispatch(ctx context.Context, client *hub.Client, data []byte) {
	var base domain.BaseEvent
	if err := json.Unmarshal(data, &base); err != nil {
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "malformed event", ""))
		return
	}

	switch base.Type {
	case domain.EventJoinChannel:
		var evt domain.JoinChannelEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "malformed join-channel event", ""))
			return
		}
		h.handleErr(ctx, client, h.relay.HandleJoin(ctx, client, evt.ChannelID))

	case domain.EventLeaveChannel:
		var evt domain.LeaveChannelEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "malformed leave-channel event", ""))
			return
		}
		h.handleErr(ctx, client, h.relay.HandleLeave(ctx, client, evt.ChannelID))

	case domain.EventChatMessage:
		var evt domain.ChatMessageEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "malformed chat-message event", ""))
			return
		}
		h.handleErr(ctx, client, h.relay.HandleChatMessage(ctx, client, evt.ChannelID, evt.Message))

	default:
		client.SendEvent(domain.NewErrorEvent(domain.ErrCodeBadRequest, "unknown event type: "+base.Type, ""))
	}
}

func (h *WSHandler) handleErr(ctx context.Context, client *hub.Client, err error) {
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldSessionID, client.ID).Msg("event handling failed")
	}
}
