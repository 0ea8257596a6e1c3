package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bilik-backend/internal/model"
)

const historyPageSize = 8

// checkoutResponse is one row of the earliest-checkout-per-room lookup.
type checkoutResponse struct {
	RoomID   int64     `json:"room_id"`
	Earliest time.Time `json:"earliest"`
}

// GetEarliestCheckouts handles GET /api/checkouts: for every room with a
// session still running, the soonest future check-out. Rooms without one
// are simply absent.
func (h *Handler) GetEarliestCheckouts(c *gin.Context) {
	now := h.clock.Now()

	var sessions []model.Session
	err := h.store.DB().
		Where("status <> ? AND check_out > ?", model.StatusDone, now).
		Order("room_id ASC, check_out ASC").
		Find(&sessions).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve check-outs"})
		return
	}

	rows := []checkoutResponse{}
	seen := make(map[int64]bool)
	for _, sess := range sessions {
		if seen[sess.RoomID] {
			continue
		}
		seen[sess.RoomID] = true
		rows = append(rows, checkoutResponse{RoomID: sess.RoomID, Earliest: sess.CheckOut})
	}
	c.JSON(http.StatusOK, rows)
}

// historyItem is one finished stay in the rental history.
type historyItem struct {
	OccupantID   string    `json:"occupant_id"`
	OccupantName string    `json:"occupant_name"`
	RoomName     string    `json:"room_name"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
}

// GetRentalHistory handles GET /api/history: paginated finished sessions,
// newest first, optionally filtered by room and by a substring of the
// occupant's id or name.
func (h *Handler) GetRentalHistory(c *gin.Context) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 1 {
		page = p
	}

	db := h.store.DB()
	q := db.Model(&model.Session{}).Where("sessions.status = ?", model.StatusDone)
	if roomParam := c.Query("room_id"); roomParam != "" {
		roomID, err := strconv.ParseInt(roomParam, 10, 64)
		if err != nil {
			respondBadRequest(c, "Invalid room ID")
			return
		}
		q = q.Where("sessions.room_id = ?", roomID)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("sessions.occupant_id LIKE ? OR sessions.occupant_name LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to count history"})
		return
	}

	var items []historyItem
	err := q.
		Joins("JOIN rooms ON rooms.id = sessions.room_id").
		Select("sessions.occupant_id, sessions.occupant_name, sessions.check_in, sessions.check_out, rooms.name AS room_name").
		Order("sessions.check_in DESC").
		Limit(historyPageSize).
		Offset((page - 1) * historyPageSize).
		Scan(&items).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve history"})
		return
	}
	if items == nil {
		items = []historyItem{}
	}

	c.JSON(http.StatusOK, gin.H{
		"history": items,
		"total":   total,
		"limit":   historyPageSize,
		"page":    page,
	})
}

// Weekday labels of the original deployment's locale, Sunday first to line
// up with time.Weekday numbering.
var dayLabels = []string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

// GetSummary handles GET /api/summary: finished-stay counts per weekday and
// per room over the last 30 days, plus the all-time top ten occupants by
// visit frequency.
func (h *Handler) GetSummary(c *gin.Context) {
	db := h.store.DB()
	cutoff := h.clock.Now().AddDate(0, 0, -30)

	// Weekday histogram, computed in Go so it works identically on
	// Postgres and SQLite.
	var checkouts []time.Time
	err := db.Model(&model.Session{}).
		Where("status = ? AND check_out >= ?", model.StatusDone, cutoff).
		Pluck("check_out", &checkouts).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate weekday data"})
		return
	}
	weekdayCounts := make([]int, 7)
	for _, t := range checkouts {
		weekdayCounts[int(t.Weekday())]++
	}

	type freqRow struct {
		OccupantID string `json:"occupant_id"`
		Frequency  int64  `json:"frequency"`
	}
	var topOccupants []freqRow
	err = db.Model(&model.Session{}).
		Select("occupant_id, COUNT(*) AS frequency").
		Where("status = ?", model.StatusDone).
		Group("occupant_id").
		Order("frequency DESC").
		Limit(10).
		Scan(&topOccupants).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate occupant data"})
		return
	}
	if topOccupants == nil {
		topOccupants = []freqRow{}
	}

	type roomRow struct {
		RoomName string `json:"room_name"`
		Count    int64  `json:"count"`
	}
	var roomCounts []roomRow
	err = db.Model(&model.Session{}).
		Joins("JOIN rooms ON rooms.id = sessions.room_id").
		Select("rooms.name AS room_name, COUNT(*) AS count").
		Where("sessions.status = ? AND sessions.check_out >= ?", model.StatusDone, cutoff).
		Group("sessions.room_id, rooms.name").
		Order("count DESC").
		Scan(&roomCounts).Error
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate room data"})
		return
	}
	if roomCounts == nil {
		roomCounts = []roomRow{}
	}

	c.JSON(http.StatusOK, gin.H{
		"weekday_labels": dayLabels,
		"weekday_counts": weekdayCounts,
		"top_occupants":  topOccupants,
		"room_counts":    roomCounts,
	})
}
