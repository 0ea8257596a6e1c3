package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bilik-backend/internal/model"
	"bilik-backend/internal/schedule"
)

// RoomResponse represents the API response for a single room.
type RoomResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MaxCapacity int    `json:"max_capacity"`
	ActiveCount int64  `json:"active_count"`
	Available   bool   `json:"available"`
}

// GetRooms handles GET /api/rooms: all rooms with occupancy and the
// availability flag (under capacity and nobody still running).
func (h *Handler) GetRooms(c *gin.Context) {
	db := h.store.DB()
	now := h.clock.Now()

	var rooms []model.Room
	if err := db.Order("id").Find(&rooms).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rooms"})
		return
	}

	type aggRow struct {
		RoomID int64
		Total  int64
	}

	var activeRows []aggRow
	err := db.Model(&model.Session{}).
		Select("room_id AS room_id, COUNT(*) AS total").
		Where("status <> ?", model.StatusDone).
		Group("room_id").
		Scan(&activeRows).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate sessions"})
		return
	}

	var runningRows []aggRow
	err = db.Model(&model.Session{}).
		Select("room_id AS room_id, COUNT(*) AS total").
		Where("status <> ? AND check_out > ?", model.StatusDone, now).
		Group("room_id").
		Scan(&runningRows).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate sessions"})
		return
	}

	active := make(map[int64]int64, len(activeRows))
	for _, a := range activeRows {
		active[a.RoomID] = a.Total
	}
	running := make(map[int64]int64, len(runningRows))
	for _, r := range runningRows {
		running[r.RoomID] = r.Total
	}

	responses := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		responses = append(responses, RoomResponse{
			ID:          room.ID,
			Name:        room.Name,
			MaxCapacity: room.MaxCapacity,
			ActiveCount: active[room.ID],
			Available:   schedule.RoomAvailable(int(active[room.ID]), room.MaxCapacity, int(running[room.ID])),
		})
	}
	c.JSON(http.StatusOK, responses)
}

type roomRequest struct {
	Name        string `json:"name" binding:"required"`
	MaxCapacity int    `json:"max_capacity" binding:"required,gt=0"`
}

// PostRoom handles POST /api/rooms.
func (h *Handler) PostRoom(c *gin.Context) {
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), req.Name, req.MaxCapacity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Room created",
		"room_id": room.ID,
	})
}

// PutRoom handles PUT /api/rooms/:room_id: rename and/or resize. A shrink
// below the active occupant count is rejected and leaves the room unchanged.
func (h *Handler) PutRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid room ID")
		return
	}
	var req roomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	if err := h.store.UpdateRoom(c.Request.Context(), h.clock.Now(), roomID, req.Name, req.MaxCapacity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Room updated",
	})
}

// DeleteRoom handles DELETE /api/rooms/:room_id. Removes the room and all
// of its sessions and waiting entries.
func (h *Handler) DeleteRoom(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid room ID")
		return
	}

	if err := h.store.DeleteRoom(c.Request.Context(), roomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Room deleted",
	})
}
