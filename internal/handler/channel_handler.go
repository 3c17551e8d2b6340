package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campfire-tv/backend/internal/middleware"
	"github.com/campfire-tv/backend/internal/repository"
	"github.com/campfire-tv/backend/internal/service"
	"github.com/campfire-tv/backend/pkg/response"
)

const maxAvatarSize = 5 << 20 // 5 MiB

type ChannelHandler struct {
	channels service.ChannelService
}

func NewChannelHandler(channels service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// List handles GET /api/channels.
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.channels.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to list channels")
		return
	}
	response.Success(c, channels)
}

// Details handles GET /api/channels/:id. Follow state is personalised when
// the caller is authenticated.
func (h *ChannelHandler) Details(c *gin.Context) {
	details, err := h.channels.Details(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "channel not found")
			return
		}
		response.InternalError(c, "failed to load channel")
		return
	}
	response.Success(c, details)
}

// Follow handles POST /api/channels/:id/follow.
func (h *ChannelHandler) Follow(c *gin.Context) {
	err := h.channels.Follow(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "channel not found")
			return
		}
		response.InternalError(c, "failed to follow channel")
		return
	}
	response.Success(c, gin.H{"following": true})
}

// Unfollow handles DELETE /api/channels/:id/follow.
func (h *ChannelHandler) Unfollow(c *gin.Context) {
	if err := h.channels.Unfollow(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		response.InternalError(c, "failed to unfollow channel")
		return
	}
	response.Success(c, gin.H{"following": false})
}

// Followed handles GET /api/channels/followed.
func (h *ChannelHandler) Followed(c *gin.Context) {
	channels, err := h.channels.FollowedChannels(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.InternalError(c, "failed to list followed channels")
		return
	}
	response.Success(c, channels)
}

// UpdateSettings handles PATCH /api/channels/:id/settings.
func (h *ChannelHandler) UpdateSettings(c *gin.Context) {
	var update service.ChannelUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.BadRequest(c, "malformed settings payload")
		return
	}

	channel, err := h.channels.UpdateSettings(c.Request.Context(), middleware.UserID(c), c.Param("id"), update)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "you do not own this channel")
		case errors.Is(err, repository.ErrNotFound):
			response.NotFound(c, "channel not found")
		case errors.Is(err, repository.ErrValidation):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "failed to update channel")
		}
		return
	}

	response.Success(c, channel)
}

// UploadAvatar handles PUT /api/channels/:id/avatar (multipart form, field
// "avatar").
func (h *ChannelHandler) UploadAvatar(c *gin.Context) {
	file, err := c.FormFile("avatar")
	if err != nil {
		response.BadRequest(c, "avatar file is required")
		return
	}
	if file.Size > maxAvatarSize {
		response.BadRequest(c, "avatar exceeds the 5 MiB limit")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.InternalError(c, "failed to read upload")
		return
	}
	defer src.Close()

	url, err := h.channels.UploadAvatar(
		c.Request.Context(),
		middleware.UserID(c),
		c.Param("id"),
		src,
		file.Size,
		file.Header.Get("Content-Type"),
		file.Filename,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "you do not own this channel")
		case errors.Is(err, repository.ErrValidation):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, "failed to store avatar")
		}
		return
	}

	response.Success(c, gin.H{"avatarUrl": url})
}

// StreamKey handles GET /api/channels/:id/stream-key.
func (h *ChannelHandler) StreamKey(c *gin.Context) {
	key, err := h.channels.StreamKey(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "you do not own this channel")
		case errors.Is(err, repository.ErrNotFound):
			response.NotFound(c, "channel not found")
		default:
			response.InternalError(c, "failed to load stream key")
		}
		return
	}
	response.Success(c, gin.H{"streamKey": key})
}
