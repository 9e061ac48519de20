package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/domain"
)

// MeetingsHandler is the metadata CRUD surface: create instant or scheduled
// meetings, list your own, delete your own. The caller's client token stands
// in for an identity.
type MeetingsHandler struct {
	Store *app.MeetingStore
}

type createMeetingRequest struct {
	Title            string `json:"title"`
	Name             string `json:"name" binding:"required"`
	Password         string `json:"password"`
	RequiresApproval bool   `json:"requiresApproval"`
	ScheduledFor     string `json:"scheduledFor"`
}

func (h *MeetingsHandler) Create(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing or invalid name"})
		return
	}

	var scheduled *time.Time
	if req.ScheduledFor != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid scheduledFor"})
			return
		}
		scheduled = &t
	}

	info, err := h.Store.Create(app.CreateMeetingParams{
		Title:            req.Title,
		CreatedBy:        c.GetString("client_token"),
		Password:         req.Password,
		RequiresApproval: req.RequiresApproval,
		ScheduledFor:     scheduled,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "Failed to create meeting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "meetingId": info.ID})
}

func (h *MeetingsHandler) List(c *gin.Context) {
	meetings := h.Store.List(c.GetString("client_token"))
	c.JSON(http.StatusOK, gin.H{"ok": true, "meetings": meetings})
}

func (h *MeetingsHandler) Delete(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	if err := h.Store.Delete(id, c.GetString("client_token")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
