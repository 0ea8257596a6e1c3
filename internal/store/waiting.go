package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bilik-backend/internal/model"
	"bilik-backend/internal/schedule"
)

// JoinWaiting queues an occupant for a room. When the room is available
// right now (under capacity and nobody still running), the entry is created
// already cleared for promotion; otherwise it waits its turn. The second
// return value reports that availability. Estimates for the whole room queue
// are recomputed in the same transaction.
func (s *gormStore) JoinWaiting(ctx context.Context, now time.Time, roomID int64, occupantID, occupantName, phone string) (*model.WaitingEntry, bool, error) {
	var (
		created   *model.WaitingEntry
		available bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		busy, err := occupantActive(tx, occupantID)
		if err != nil {
			return err
		}
		if busy {
			return fmt.Errorf("occupant %q holds an active session: %w", occupantID, schedule.ErrDuplicateOccupant)
		}
		queued, err := occupantQueued(tx, occupantID)
		if err != nil {
			return err
		}
		if queued {
			return fmt.Errorf("occupant %q is already queued: %w", occupantID, schedule.ErrDuplicateOccupant)
		}

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
		available = schedule.RoomAvailable(int(active), room.MaxCapacity, int(running))

		status := model.StatusWaiting
		if available {
			status = model.StatusDone
		}
		entry := model.WaitingEntry{
			Ref:          uuid.NewString(),
			RoomID:       roomID,
			OccupantID:   occupantID,
			OccupantName: occupantName,
			Phone:        phone,
			Status:       status,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create waiting entry: %w", err)
		}

		if err := recomputeEstimates(tx, roomID, now); err != nil {
			return err
		}

		// Re-read so the returned entry carries the estimates just written.
		if err := tx.First(&entry, entry.ID).Error; err != nil {
			return fmt.Errorf("failed to reload waiting entry %d: %w", entry.ID, err)
		}
		created = &entry
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return created, available, nil
}

// MarkWaitingDone is the manual operator override: it clears an entry for
// promotion without any availability validation.
func (s *gormStore) MarkWaitingDone(ctx context.Context, entryID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.WaitingEntry
		err := tx.First(&entry, entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("waiting entry %d: %w", entryID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load waiting entry %d: %w", entryID, err)
		}
		if entry.Status == model.StatusDone {
			return nil
		}
		if err := tx.Model(&entry).Update("status", model.StatusDone).Error; err != nil {
			return fmt.Errorf("failed to mark waiting entry %d done: %w", entryID, err)
		}
		return nil
	})
}

// PromoteWaiting turns a cleared entry into a session, by default in the
// room it queued for, optionally in another. On any failure (room full,
// occupant somehow active) the entry is left untouched and the error
// surfaces; on success the entry is deleted.
func (s *gormStore) PromoteWaiting(ctx context.Context, now time.Time, entryID int64, targetRoomID *int64) (*model.Session, error) {
	var created *model.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.WaitingEntry
		err := tx.Where("id = ? AND status = ?", entryID, model.StatusDone).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("cleared waiting entry %d: %w", entryID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load waiting entry %d: %w", entryID, err)
		}

		roomID := entry.RoomID
		if targetRoomID != nil {
			roomID = *targetRoomID
		}

		sess, err := startSession(tx, now, roomID, entry.OccupantID, entry.OccupantName, true)
		if err != nil {
			return err
		}
		if err := tx.Delete(&entry).Error; err != nil {
			return fmt.Errorf("failed to delete promoted waiting entry %d: %w", entryID, err)
		}
		created = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// MoveWaitingRoom reassigns an entry to another room's queue, keeping its
// status. Both queues get fresh estimates.
func (s *gormStore) MoveWaitingRoom(ctx context.Context, now time.Time, entryID, newRoomID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.WaitingEntry
		err := tx.First(&entry, entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("waiting entry %d: %w", entryID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load waiting entry %d: %w", entryID, err)
		}
		if entry.RoomID == newRoomID {
			return nil
		}

		room, err := loadRoom(tx, newRoomID)
		if err != nil {
			return err
		}
		active, err := activeSessionCount(tx, newRoomID)
		if err != nil {
			return err
		}
		if active >= int64(room.MaxCapacity) {
			return fmt.Errorf("room %d at capacity %d: %w", newRoomID, room.MaxCapacity, schedule.ErrTargetRoomFull)
		}

		oldRoomID := entry.RoomID
		if err := tx.Model(&entry).Update("room_id", newRoomID).Error; err != nil {
			return fmt.Errorf("failed to move waiting entry %d: %w", entryID, err)
		}

		if err := recomputeEstimates(tx, oldRoomID, now); err != nil {
			return err
		}
		return recomputeEstimates(tx, newRoomID, now)
	})
}

// RemoveWaiting withdraws an entry and re-spaces the estimates of those
// behind it.
func (s *gormStore) RemoveWaiting(ctx context.Context, now time.Time, entryID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.WaitingEntry
		err := tx.First(&entry, entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("waiting entry %d: %w", entryID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load waiting entry %d: %w", entryID, err)
		}
		if err := tx.Delete(&entry).Error; err != nil {
			return fmt.Errorf("failed to delete waiting entry %d: %w", entryID, err)
		}
		return recomputeEstimates(tx, entry.RoomID, now)
	})
}

// SweepEligibleHeads clears, per room, the head of the waiting queue whose
// estimated availability time has elapsed. Promotion into a session stays a
// separate, capacity-checked step. Driven by the poller; returns the IDs of
// the entries it cleared.
func (s *gormStore) SweepEligibleHeads(ctx context.Context, now time.Time) ([]int64, error) {
	var cleared []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []model.WaitingEntry
		err := tx.Where("status = ?", model.StatusWaiting).
			Order("room_id ASC, created_at ASC, id ASC").
			Find(&entries).Error
		if err != nil {
			return fmt.Errorf("failed to list waiting entries: %w", err)
		}

		seen := make(map[int64]bool)
		for i := range entries {
			e := &entries[i]
			if seen[e.RoomID] {
				continue
			}
			seen[e.RoomID] = true

			if !schedule.HeadEligible(e.EstimatedAvailableAt, now) {
				continue
			}
			if err := tx.Model(e).Update("status", model.StatusDone).Error; err != nil {
				return fmt.Errorf("failed to clear waiting entry %d: %w", e.ID, err)
			}
			cleared = append(cleared, e.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cleared, nil
}
