package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bilik-backend/internal/model"
)

// waitingResponse is the flattened structure for the waiting-list query
// surface. Entries come back in queue order.
type waitingResponse struct {
	ID                   int64      `json:"id"`
	Ref                  string     `json:"ref"`
	RoomID               int64      `json:"room_id"`
	OccupantID           string     `json:"occupant_id"`
	OccupantName         string     `json:"occupant_name"`
	Phone                string     `json:"phone"`
	Status               string     `json:"status"`
	EstimatedAvailableAt *time.Time `json:"estimated_available_at"`
	EstimatedCompleteAt  *time.Time `json:"estimated_complete_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

// GetRoomWaiting handles GET /api/rooms/:room_id/waiting.
func (h *Handler) GetRoomWaiting(c *gin.Context) {
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

	var entries []model.WaitingEntry
	if err := db.Where("room_id = ?", roomID).Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve waiting list"})
		return
	}

	responses := make([]waitingResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, waitingResponse{
			ID:                   e.ID,
			Ref:                  e.Ref,
			RoomID:               e.RoomID,
			OccupantID:           e.OccupantID,
			OccupantName:         e.OccupantName,
			Phone:                e.Phone,
			Status:               e.Status,
			EstimatedAvailableAt: e.EstimatedAvailableAt,
			EstimatedCompleteAt:  e.EstimatedCompleteAt,
			CreatedAt:            e.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, responses)
}

type joinWaitingRequest struct {
	OccupantID   string `json:"occupant_id" binding:"required"`
	OccupantName string `json:"occupant_name" binding:"required"`
	Phone        string `json:"phone"`
}

// PostRoomWaiting handles POST /api/rooms/:room_id/waiting. When the room
// turns out to be available the entry is created already cleared, and the
// response says so, so the client can promote right away.
func (h *Handler) PostRoomWaiting(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid room ID")
		return
	}
	var req joinWaitingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	entry, available, err := h.store.JoinWaiting(c.Request.Context(), h.clock.Now(), roomID, req.OccupantID, req.OccupantName, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":                true,
		"message":                "Added to waiting list",
		"entry_id":               entry.ID,
		"ref":                    entry.Ref,
		"status":                 entry.Status,
		"is_room_available":      available,
		"estimated_available_at": entry.EstimatedAvailableAt,
		"estimated_complete_at":  entry.EstimatedCompleteAt,
	})
}

// MarkWaitingDone handles POST /api/waiting/:entry_id/done, the manual
// operator override clearing an entry for promotion.
func (h *Handler) MarkWaitingDone(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("entry_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid waiting entry ID")
		return
	}

	if err := h.store.MarkWaitingDone(c.Request.Context(), entryID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Waiting entry cleared",
	})
}

type promoteRequest struct {
	NewRoomID *int64 `json:"new_room_id"`
}

// PromoteWaiting handles POST /api/waiting/:entry_id/promote: turns a
// cleared entry into a session, optionally in a different room than it
// queued for.
func (h *Handler) PromoteWaiting(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("entry_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid waiting entry ID")
		return
	}
	var req promoteRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	sess, err := h.store.PromoteWaiting(c.Request.Context(), h.clock.Now(), entryID, req.NewRoomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Moved from waiting list into room",
		"session_id": sess.ID,
		"room_id":    sess.RoomID,
		"check_out":  sess.CheckOut,
	})
}

// MoveWaitingRoom handles POST /api/waiting/:entry_id/move.
func (h *Handler) MoveWaitingRoom(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("entry_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid waiting entry ID")
		return
	}
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.store.MoveWaitingRoom(c.Request.Context(), h.clock.Now(), entryID, req.NewRoomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Waiting entry moved",
	})
}

// DeleteWaitingEntry handles DELETE /api/waiting/:entry_id (withdrawal).
func (h *Handler) DeleteWaitingEntry(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("entry_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid waiting entry ID")
		return
	}

	if err := h.store.RemoveWaiting(c.Request.Context(), h.clock.Now(), entryID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Removed from waiting list",
	})
}
