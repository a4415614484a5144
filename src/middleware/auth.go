package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

// Restorer brings a client session back after a process restart.
type Restorer interface {
	Ensure(ctx context.Context, userID string) error
}

type AuthMiddleware struct {
	sessionStore *auth.SessionStore
	userStore    *auth.UserStore
	restorer     Restorer
}

func NewAuthMiddleware(sessionStore *auth.SessionStore, userStore *auth.UserStore, restorer Restorer) *AuthMiddleware {
	return &AuthMiddleware{
		sessionStore: sessionStore,
		userStore:    userStore,
		restorer:     restorer,
	}
}

func sessionIDFromRequest(c *gin.Context) string {
	sessionID, err := c.Cookie("session_id")
	if err == nil && sessionID != "" {
		return sessionID
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := sessionIDFromRequest(c)
		if sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		session, err := m.sessionStore.GetSession(ctx, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			c.Abort()
			return
		}

		user, err := m.userStore.GetUser(ctx, session.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		if err := m.restorer.Ensure(ctx, user.ID); err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				c.Abort()
				return
			}
			log.Printf("⚠️  Failed to restore session of %s: %v", user.ID, err)
		}

		c.Set("user", user)
		c.Set("session", session)

		if err := m.sessionStore.RefreshSession(ctx, sessionID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh session"})
			c.Abort()
			return
		}

		c.Next()
	}
}
