package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"bilik-backend/config"
	"bilik-backend/internal/mw"
	"bilik-backend/internal/schedule"
	"bilik-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, clock schedule.Clock, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, clock)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Short-lived response cache: the query surface is polled by countdown
	// UIs, the TTL just absorbs bursts without hiding state changes long.
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 10*ttl), ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/rooms", caching, handler.GetRooms)
		api.POST("/rooms", handler.PostRoom)
		api.PUT("/rooms/:room_id", handler.PutRoom)
		api.DELETE("/rooms/:room_id", handler.DeleteRoom)

		api.GET("/rooms/:room_id/sessions", caching, handler.GetRoomSessions)
		api.POST("/rooms/:room_id/sessions", handler.PostRoomSession)
		api.POST("/sessions/:session_id/extend", handler.ExtendSession)
		api.POST("/sessions/:session_id/done", handler.MarkSessionDone)
		api.POST("/sessions/:session_id/move", handler.MoveSessionRoom)
		api.DELETE("/sessions/:session_id", handler.DeleteSession)

		api.GET("/rooms/:room_id/waiting", caching, handler.GetRoomWaiting)
		api.POST("/rooms/:room_id/waiting", handler.PostRoomWaiting)
		api.POST("/waiting/:entry_id/done", handler.MarkWaitingDone)
		api.POST("/waiting/:entry_id/promote", handler.PromoteWaiting)
		api.POST("/waiting/:entry_id/move", handler.MoveWaitingRoom)
		api.DELETE("/waiting/:entry_id", handler.DeleteWaitingEntry)

		api.GET("/checkouts", caching, handler.GetEarliestCheckouts)
		api.GET("/history", caching, handler.GetRentalHistory)
		api.GET("/summary", caching, handler.GetSummary)
	}

	return r
}
