package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/models"
	"www.github.com/Wanderer0074348/EventSync/src/session"
)

type SyncController interface {
	SyncNow(ctx context.Context, userID string) (*models.PullResult, error)
	Status(userID string) (models.SessionStatus, bool)
}

type SyncHandler struct {
	controller SyncController
}

func NewSyncHandler(controller SyncController) *SyncHandler {
	return &SyncHandler{controller: controller}
}

func (h *SyncHandler) SyncNow(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	result, err := h.controller.SyncNow(c.Request.Context(), user.ID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"result": result})
	case errors.Is(err, models.ErrNotLinked):
		c.JSON(http.StatusConflict, gin.H{"error": "Google Calendar is not linked"})
	case errors.Is(err, session.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
	case errors.Is(err, session.ErrNoSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No active session"})
	default:
		log.Printf("❌ Manual sync for %s failed: %v", user.ID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Sync failed"})
	}
}

func (h *SyncHandler) Status(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	status, _ := h.controller.Status(user.ID)
	c.JSON(http.StatusOK, status)
}

func (h *SyncHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/sync", h.SyncNow)
	group.GET("/sync/status", h.Status)
}
