package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bilik-backend/internal/model"
	"bilik-backend/internal/schedule"
)

// Store defines the transactional command surface of the occupancy engine.
// Every operation that checks then writes runs as a single database
// transaction, so capacity checks, duplicate-occupant checks and estimate
// recomputation can never observe or commit a half-applied state.
//
// Operations take `now` explicitly; callers own the clock.
type Store interface {
	DB() *gorm.DB

	// Room registry
	CreateRoom(ctx context.Context, name string, maxCapacity int) (*model.Room, error)
	UpdateRoom(ctx context.Context, now time.Time, roomID int64, name string, maxCapacity int) error
	DeleteRoom(ctx context.Context, roomID int64) error

	// Sessions
	StartSession(ctx context.Context, now time.Time, roomID int64, occupantID, occupantName string) (*model.Session, error)
	ExtendSession(ctx context.Context, sessionID int64) (*model.Session, error)
	MarkSessionDone(ctx context.Context, now time.Time, sessionID int64) error
	RemoveSession(ctx context.Context, now time.Time, sessionID int64) error
	MoveSessionRoom(ctx context.Context, now time.Time, sessionID, newRoomID int64) error

	// Waiting queue
	JoinWaiting(ctx context.Context, now time.Time, roomID int64, occupantID, occupantName, phone string) (*model.WaitingEntry, bool, error)
	MarkWaitingDone(ctx context.Context, entryID int64) error
	PromoteWaiting(ctx context.Context, now time.Time, entryID int64, targetRoomID *int64) (*model.Session, error)
	MoveWaitingRoom(ctx context.Context, now time.Time, entryID, newRoomID int64) error
	RemoveWaiting(ctx context.Context, now time.Time, entryID int64) error
	SweepEligibleHeads(ctx context.Context, now time.Time) ([]int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for the read-only query surface.
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Shared transaction helpers ---

// loadRoom fetches a room or reports schedule.ErrNotFound.
func loadRoom(tx *gorm.DB, roomID int64) (*model.Room, error) {
	var room model.Room
	if err := tx.First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("room %d: %w", roomID, schedule.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load room %d: %w", roomID, err)
	}
	return &room, nil
}

// activeSessionCount counts sessions occupying a slot in the room.
func activeSessionCount(tx *gorm.DB, roomID int64) (int64, error) {
	var n int64
	err := tx.Model(&model.Session{}).
		Where("room_id = ? AND status <> ?", roomID, model.StatusDone).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions for room %d: %w", roomID, err)
	}
	return n, nil
}

// runningSessionCount counts active sessions whose check-out is still in the
// future, i.e. occupants physically expected to be inside.
func runningSessionCount(tx *gorm.DB, roomID int64, now time.Time) (int64, error) {
	var n int64
	err := tx.Model(&model.Session{}).
		Where("room_id = ? AND status <> ? AND check_out > ?", roomID, model.StatusDone, now).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count running sessions for room %d: %w", roomID, err)
	}
	return n, nil
}

// occupantActive reports whether the occupant holds an active session in any
// room. Uniqueness is system-wide, not per room.
func occupantActive(tx *gorm.DB, occupantID string) (bool, error) {
	var n int64
	err := tx.Model(&model.Session{}).
		Where("occupant_id = ? AND status <> ?", occupantID, model.StatusDone).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check occupant %q activity: %w", occupantID, err)
	}
	return n > 0, nil
}

// occupantQueued reports whether the occupant already has a waiting entry
// anywhere. Entries are deleted on promotion or withdrawal, so any live row
// counts.
func occupantQueued(tx *gorm.DB, occupantID string) (bool, error) {
	var n int64
	err := tx.Model(&model.WaitingEntry{}).
		Where("occupant_id = ?", occupantID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check occupant %q queue state: %w", occupantID, err)
	}
	return n > 0, nil
}

// earliestCheckout returns the minimum future check-out among the room's
// active sessions, or nil when no session is still running time-wise.
func earliestCheckout(tx *gorm.DB, roomID int64, now time.Time) (*time.Time, error) {
	var sess model.Session
	err := tx.Where("room_id = ? AND status <> ? AND check_out > ?", roomID, model.StatusDone, now).
		Order("check_out ASC").
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find earliest check-out for room %d: %w", roomID, err)
	}
	return &sess.CheckOut, nil
}

// recomputeEstimates rewrites the slot estimates of every waiting entry in
// the room, strictly FIFO from the room's earliest future check-out (or now
// for a time-idle room). Called on structural queue events only; a session
// finishing early does not move estimates.
func recomputeEstimates(tx *gorm.DB, roomID int64, now time.Time) error {
	base, err := earliestCheckout(tx, roomID, now)
	if err != nil {
		return err
	}
	if base == nil {
		base = &now
	}

	var entries []model.WaitingEntry
	if err := tx.Where("room_id = ? AND status = ?", roomID, model.StatusWaiting).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return fmt.Errorf("failed to list waiting entries for room %d: %w", roomID, err)
	}

	for i := range entries {
		availableAt, completeAt := schedule.SlotTimes(*base, i)
		err := tx.Model(&entries[i]).Updates(map[string]any{
			"estimated_available_at": availableAt,
			"estimated_complete_at":  completeAt,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update estimates for waiting entry %d: %w", entries[i].ID, err)
		}
	}
	return nil
}

// promoteHeadIfFreed is the single integration point for "freed room means
// the head of the queue becomes eligible". It re-evaluates the availability
// predicate and, when the room is genuinely free and the head's estimate has
// elapsed, flips the head to done so it can be promoted into a session.
//
// The estimate gate matters: marking a session done early frees the slot by
// count, but the queue stays on its fixed turnover projection until the
// estimated time passes.
func promoteHeadIfFreed(tx *gorm.DB, roomID int64, now time.Time) error {
	room, err := loadRoom(tx, roomID)
	if err != nil {
		return err
	}

	active, err := activeSessionCount(tx, roomID)
	if err != nil {
		return err
	}
	running, err := runningSessionCount(tx, roomID, now)
	if err != nil {
		return err
	}
	if !schedule.RoomAvailable(int(active), room.MaxCapacity, int(running)) {
		return nil
	}

	var head model.WaitingEntry
	err = tx.Where("room_id = ? AND status = ?", roomID, model.StatusWaiting).
		Order("created_at ASC, id ASC").
		First(&head).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load waiting head for room %d: %w", roomID, err)
	}

	if !schedule.HeadEligible(head.EstimatedAvailableAt, now) {
		return nil
	}

	if err := tx.Model(&head).Update("status", model.StatusDone).Error; err != nil {
		return fmt.Errorf("failed to clear waiting head %d: %w", head.ID, err)
	}
	return nil
}
