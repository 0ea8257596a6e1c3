package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bilik-backend/internal/schedule"
	"bilik-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store store.Store
	clock schedule.Clock
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, clock schedule.Clock) *Handler {
	return &Handler{
		store: s,
		clock: clock,
	}
}

// Machine-readable reason codes for the expected engine errors. Clients use
// these to pick a follow-up action, e.g. offering the waiting list after a
// room_full on a direct start.
const (
	codeNotFound               = "not_found"
	codeDuplicateOccupant      = "duplicate_occupant"
	codeRoomFull               = "room_full"
	codeQueueNotEmpty          = "queue_not_empty"
	codeQueueBlocksExtension   = "queue_blocks_extension"
	codeAlreadyExtended        = "already_extended"
	codeCapacityBelowOccupancy = "capacity_below_occupancy"
	codeTargetRoomFull         = "target_room_full"
)

// respondError maps an engine error onto the command envelope. Expected
// scheduling conflicts become 409s with their reason code, missing entities
// 404s; anything else is an internal error and the detail stays in the log.
func respondError(c *gin.Context, err error) {
	status := http.StatusConflict
	code := ""
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		status = http.StatusNotFound
		code = codeNotFound
	case errors.Is(err, schedule.ErrDuplicateOccupant):
		code = codeDuplicateOccupant
	case errors.Is(err, schedule.ErrRoomFull):
		code = codeRoomFull
	case errors.Is(err, schedule.ErrQueueNotEmpty):
		code = codeQueueNotEmpty
	case errors.Is(err, schedule.ErrQueueBlocksExtension):
		code = codeQueueBlocksExtension
	case errors.Is(err, schedule.ErrAlreadyExtended):
		code = codeAlreadyExtended
	case errors.Is(err, schedule.ErrCapacityBelowOccupancy):
		code = codeCapacityBelowOccupancy
	case errors.Is(err, schedule.ErrTargetRoomFull):
		code = codeTargetRoomFull
	default:
		log.Printf("engine operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "internal error",
		})
		return
	}

	c.JSON(status, gin.H{
		"success": false,
		"code":    code,
		"message": err.Error(),
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": message,
	})
}
