package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"bilik-backend/internal/model"
	"bilik-backend/internal/schedule"
)

// CreateRoom inserts a new room. Capacity validation beyond positivity is
// the caller's concern; a new room has no occupants so no invariant can be
// violated here.
func (s *gormStore) CreateRoom(ctx context.Context, name string, maxCapacity int) (*model.Room, error) {
	if maxCapacity < 1 {
		return nil, fmt.Errorf("max capacity must be positive, got %d", maxCapacity)
	}
	room := model.Room{Name: name, MaxCapacity: maxCapacity}
	if err := s.db.WithContext(ctx).Create(&room).Error; err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return &room, nil
}

// UpdateRoom renames and/or resizes a room. Shrinking below the current
// active session count fails with ErrCapacityBelowOccupancy and leaves the
// room untouched. A successful resize recomputes the queue's estimates and,
// when it opened a slot on a time-idle room, clears the queue head.
func (s *gormStore) UpdateRoom(ctx context.Context, now time.Time, roomID int64, name string, maxCapacity int) error {
	if maxCapacity < 1 {
		return fmt.Errorf("max capacity must be positive, got %d", maxCapacity)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := loadRoom(tx, roomID)
		if err != nil {
			return err
		}

		active, err := activeSessionCount(tx, roomID)
		if err != nil {
			return err
		}
		if int64(maxCapacity) < active {
			return fmt.Errorf("room %d has %d active occupants: %w", roomID, active, schedule.ErrCapacityBelowOccupancy)
		}

		err = tx.Model(room).Updates(map[string]any{
			"name":         name,
			"max_capacity": maxCapacity,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update room %d: %w", roomID, err)
		}

		if err := recomputeEstimates(tx, roomID, now); err != nil {
			return err
		}
		if active < int64(maxCapacity) {
			return promoteHeadIfFreed(tx, roomID, now)
		}
		return nil
	})
}

// DeleteRoom removes a room together with all of its sessions and waiting
// entries. Destructive; confirmation is the caller's responsibility.
func (s *gormStore) DeleteRoom(ctx context.Context, roomID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := loadRoom(tx, roomID)
		if err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&model.Session{}).Error; err != nil {
			return fmt.Errorf("failed to delete sessions of room %d: %w", roomID, err)
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&model.WaitingEntry{}).Error; err != nil {
			return fmt.Errorf("failed to delete waiting entries of room %d: %w", roomID, err)
		}
		if err := tx.Delete(room).Error; err != nil {
			return fmt.Errorf("failed to delete room %d: %w", roomID, err)
		}
		return nil
	})
}
