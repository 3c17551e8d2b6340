package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campfire-tv/backend/pkg/jwt"
	"github.com/campfire-tv/backend/pkg/log"
	"github.com/campfire-tv/backend/pkg/response"
)

const (
	// ContextUserID is the gin context key the authenticated user id is
	// stored under.
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// Auth validates the Bearer token and stores the caller's identity in the
// gin context. Requests without a valid access token are rejected.
func Auth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, manager)
		if !ok {
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// OptionalAuth stores the caller's identity when a valid token is present
// but lets anonymous requests through. Used by read endpoints that
// personalise their response (follow state) without requiring login.
func OptionalAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.Next()
			return
		}

		claims, err := manager.ValidateToken(token)
		if err != nil || claims.Type != "access" {
			l := log.Ctx(c.Request.Context())
			l.Debug().Err(err).Msg("ignoring invalid token on optional-auth route")
			c.Next()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated user id, empty for anonymous requests.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		return v.(string)
	}
	return ""
}

func bearerClaims(c *gin.Context, manager *jwt.Manager) (*jwt.Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		response.Unauthorized(c, "missing authorization header")
		return nil, false
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		response.Unauthorized(c, "authorization header must be a bearer token")
		return nil, false
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		if err == jwt.ErrExpiredToken {
			response.Unauthorized(c, "token has expired")
		} else {
			response.Unauthorized(c, "invalid token")
		}
		return nil, false
	}
	if claims.Type != "access" {
		response.Unauthorized(c, "access token required")
		return nil, false
	}

	return claims, true
}
