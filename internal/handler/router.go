package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campfire-tv/backend/internal/middleware"
	"github.com/campfire-tv/backend/pkg/jwt"
	"github.com/campfire-tv/backend/pkg/log"
	"github.com/campfire-tv/backend/pkg/response"
)

// Router wires every HTTP and WebSocket route.
type Router struct {
	Auth     *AuthHandler
	Channels *ChannelHandler
	History  *HistoryHandler
	WS       *WSHandler
	Tokens   *jwt.Manager

	// StaticDir, when non-empty, is served under /static for locally
	// stored uploads.
	StaticDir string
}

func (r *Router) Register(engine *gin.Engine) {
	engine.Use(log.GinMiddleware(log.L()))

	engine.GET("/healthz", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	engine.GET("/ws", r.WS.Serve)

	if r.StaticDir != "" {
		engine.Static("/static", r.StaticDir)
	}

	api := engine.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", r.Auth.Register)
		auth.POST("/login", r.Auth.Login)
		auth.POST("/refresh", r.Auth.Refresh)
		auth.POST("/password", middleware.Auth(r.Tokens), r.Auth.ChangePassword)
	}

	channels := api.Group("/channels")
	{
		channels.GET("", r.Channels.List)
		channels.GET("/followed", middleware.Auth(r.Tokens), r.Channels.Followed)
		channels.GET("/:id", middleware.OptionalAuth(r.Tokens), r.Channels.Details)
		channels.GET("/:id/messages", r.History.Page)
		channels.POST("/:id/follow", middleware.Auth(r.Tokens), r.Channels.Follow)
		channels.DELETE("/:id/follow", middleware.Auth(r.Tokens), r.Channels.Unfollow)
		channels.PATCH("/:id/settings", middleware.Auth(r.Tokens), r.Channels.UpdateSettings)
		channels.PUT("/:id/avatar", middleware.Auth(r.Tokens), r.Channels.UploadAvatar)
		channels.GET("/:id/stream-key", middleware.Auth(r.Tokens), r.Channels.StreamKey)
	}
}
