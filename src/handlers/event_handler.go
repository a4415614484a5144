package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/events"
	"www.github.com/Wanderer0074348/EventSync/src/models"
	"www.github.com/Wanderer0074348/EventSync/src/utils"
)

const monthLayout = "2006-01"

type EventHandler struct {
	service      *events.Service
	calendarName string
	now          func() time.Time
}

func NewEventHandler(service *events.Service, calendarName string) *EventHandler {
	return &EventHandler{
		service:      service,
		calendarName: calendarName,
		now:          time.Now,
	}
}

// mutationError writes the response for a failed create/update/delete.
func mutationError(c *gin.Context, err error) {
	var validation models.ValidationErrors
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": validation})
	case errors.Is(err, models.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
	default:
		log.Printf("❌ Event operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save event"})
	}
}

func (h *EventHandler) List(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	result, err := h.service.List(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("❌ Failed to list events for %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load events"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EventHandler) Defaults(c *gin.Context) {
	c.JSON(http.StatusOK, events.Defaults(h.now()))
}

func (h *EventHandler) Day(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	loc := h.service.Location()

	day := h.now().In(loc)
	if value := c.Query("date"); value != "" {
		parsed, err := utils.ParseDay(value, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be yyyy-MM-dd"})
			return
		}
		day = parsed
	}

	result, err := h.service.ListDay(c.Request.Context(), user.ID, day)
	if err != nil {
		log.Printf("❌ Failed to list day for %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":   utils.FormatDay(day, loc),
		"events": result.Events,
		"stale":  result.Stale,
	})
}

func (h *EventHandler) Marked(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	loc := h.service.Location()

	month := h.now().In(loc)
	if value := c.Query("month"); value != "" {
		parsed, err := time.ParseInLocation(monthLayout, value, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be yyyy-MM"})
			return
		}
		month = parsed
	}

	dates, err := h.service.MarkedDates(c.Request.Context(), user.ID, month)
	if err != nil {
		log.Printf("❌ Failed to mark dates for %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"month": month.Format(monthLayout), "dates": dates})
}

func (h *EventHandler) Create(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var input models.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	result, err := h.service.Create(c.Request.Context(), user.ID, input)
	if err != nil {
		mutationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *EventHandler) Update(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var input models.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event payload"})
		return
	}

	result, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), input)
	if err != nil {
		mutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EventHandler) Delete(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	result, err := h.service.Delete(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		mutationError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EventHandler) Export(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	feed, err := h.service.ExportICS(c.Request.Context(), user.ID, h.calendarName)
	if err != nil {
		log.Printf("❌ Failed to export events for %s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export events"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="events.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}

func (h *EventHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/events", h.List)
	group.GET("/events/defaults", h.Defaults)
	group.GET("/events/day", h.Day)
	group.GET("/events/marked", h.Marked)
	group.GET("/events/export.ics", h.Export)
	group.POST("/events", h.Create)
	group.PUT("/events/:id", h.Update)
	group.DELETE("/events/:id", h.Delete)
}
