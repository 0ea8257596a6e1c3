package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bilik-backend/internal/model"
	"bilik-backend/internal/schedule"
)

// sessionResponse is the flattened structure for the session query surface.
type sessionResponse struct {
	ID               int64     `json:"id"`
	Ref              string    `json:"ref"`
	RoomID           int64     `json:"room_id"`
	OccupantID       string    `json:"occupant_id"`
	OccupantName     string    `json:"occupant_name"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"`
	Extended         bool      `json:"extended"`
	Status           string    `json:"status"`
	DisplayStatus    string    `json:"display_status"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// GetRoomSessions handles GET /api/rooms/:room_id/sessions. Done sessions
// are included; the display status tells them apart and drives the
// warning/overtime styling of countdowns.
func (h *Handler) GetRoomSessions(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid room ID")
		return
	}

	db := h.store.DB()
	var room model.Room
	if err := db.First(&room, roomID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve room"})
		}
		return
	}

	var sessions []model.Session
	if err := db.Where("room_id = ?", roomID).Order("check_in ASC, id ASC").Find(&sessions).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve sessions"})
		return
	}

	now := h.clock.Now()
	responses := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		done := sess.Status == model.StatusDone
		responses = append(responses, sessionResponse{
			ID:               sess.ID,
			Ref:              sess.Ref,
			RoomID:           sess.RoomID,
			OccupantID:       sess.OccupantID,
			OccupantName:     sess.OccupantName,
			CheckIn:          sess.CheckIn,
			CheckOut:         sess.CheckOut,
			Extended:         sess.Extended,
			Status:           sess.Status,
			DisplayStatus:    schedule.DisplayStatus(done, sess.CheckOut, now),
			RemainingSeconds: schedule.RemainingSeconds(sess.CheckOut, now),
		})
	}
	c.JSON(http.StatusOK, responses)
}

type startSessionRequest struct {
	OccupantID   string `json:"occupant_id" binding:"required"`
	OccupantName string `json:"occupant_name" binding:"required"`
}

// PostRoomSession handles POST /api/rooms/:room_id/sessions: a direct start.
// On room_full or queue_not_empty the client is expected to offer the
// waiting list as the follow-up; the reason code in the envelope
// distinguishes the two messages.
func (h *Handler) PostRoomSession(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid room ID")
		return
	}
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	sess, err := h.store.StartSession(c.Request.Context(), h.clock.Now(), roomID, req.OccupantID, req.OccupantName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Session started",
		"session_id": sess.ID,
		"ref":        sess.Ref,
		"check_out":  sess.CheckOut,
	})
}

// ExtendSession handles POST /api/sessions/:session_id/extend. At most one
// extension per session, and none while anyone is queued.
func (h *Handler) ExtendSession(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid session ID")
		return
	}

	sess, err := h.store.ExtendSession(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Session extended",
		"check_out": sess.CheckOut,
	})
}

// MarkSessionDone handles POST /api/sessions/:session_id/done.
func (h *Handler) MarkSessionDone(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid session ID")
		return
	}

	if err := h.store.MarkSessionDone(c.Request.Context(), h.clock.Now(), sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session finished",
	})
}

type moveRequest struct {
	NewRoomID int64 `json:"new_room_id" binding:"required"`
}

// MoveSessionRoom handles POST /api/sessions/:session_id/move.
func (h *Handler) MoveSessionRoom(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid session ID")
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.store.MoveSessionRoom(c.Request.Context(), h.clock.Now(), sessionID, req.NewRoomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session moved",
	})
}

// DeleteSession handles DELETE /api/sessions/:session_id: hard removal of
// an erroneous or duplicate record, active or done.
func (h *Handler) DeleteSession(c *gin.Context) {
	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid session ID")
		return
	}

	if err := h.store.RemoveSession(c.Request.Context(), h.clock.Now(), sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Session removed",
	})
}
