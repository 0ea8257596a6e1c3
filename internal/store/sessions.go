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

// StartSession seats an occupant directly in a room. It fails with
// ErrDuplicateOccupant when the occupant is already active anywhere,
// ErrQueueNotEmpty when the room has a waiting list (the queue is the only
// fair path into a busy room), and ErrRoomFull when the room is at capacity.
func (s *gormStore) StartSession(ctx context.Context, now time.Time, roomID int64, occupantID, occupantName string) (*model.Session, error) {
	var created *model.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sess, err := startSession(tx, now, roomID, occupantID, occupantName, false)
		if err != nil {
			return err
		}
		created = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// startSession is the shared insert path for direct starts and promotions.
// fromWaiting skips the queue-not-empty check: the promoted entry is the
// head of that same queue, so the fairness gate does not apply to it.
func startSession(tx *gorm.DB, now time.Time, roomID int64, occupantID, occupantName string, fromWaiting bool) (*model.Session, error) {
	busy, err := occupantActive(tx, occupantID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("occupant %q: %w", occupantID, schedule.ErrDuplicateOccupant)
	}

	if !fromWaiting {
		var waiting int64
		err := tx.Model(&model.WaitingEntry{}).
			Where("room_id = ? AND status = ?", roomID, model.StatusWaiting).
			Count(&waiting).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count waiting entries for room %d: %w", roomID, err)
		}
		if waiting > 0 {
			return nil, fmt.Errorf("room %d: %w", roomID, schedule.ErrQueueNotEmpty)
		}
	}

	room, err := loadRoom(tx, roomID)
	if err != nil {
		return nil, err
	}
	active, err := activeSessionCount(tx, roomID)
	if err != nil {
		return nil, err
	}
	if active >= int64(room.MaxCapacity) {
		return nil, fmt.Errorf("room %d at capacity %d: %w", roomID, room.MaxCapacity, schedule.ErrRoomFull)
	}

	sess := model.Session{
		Ref:          uuid.NewString(),
		RoomID:       roomID,
		OccupantID:   occupantID,
		OccupantName: occupantName,
		CheckIn:      now,
		CheckOut:     now.Add(schedule.SessionDuration),
		Status:       model.StatusActive,
	}
	if err := tx.Create(&sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &sess, nil
}

// ExtendSession grants the single allowed extension. The check order follows
// the original system: a cleared waiting entry in the same room blocks first,
// then any waiting entry anywhere (system-wide fairness), then the
// one-extension rule.
func (s *gormStore) ExtendSession(ctx context.Context, sessionID int64) (*model.Session, error) {
	var extended *model.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.Session
		err := tx.Where("id = ? AND status <> ?", sessionID, model.StatusDone).First(&sess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("session %d: %w", sessionID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load session %d: %w", sessionID, err)
		}

		var cleared int64
		err = tx.Model(&model.WaitingEntry{}).
			Where("room_id = ? AND status = ?", sess.RoomID, model.StatusDone).
			Count(&cleared).Error
		if err != nil {
			return fmt.Errorf("failed to count cleared waiting entries for room %d: %w", sess.RoomID, err)
		}
		if cleared > 0 {
			return fmt.Errorf("room %d has a cleared waiting entry: %w", sess.RoomID, schedule.ErrQueueBlocksExtension)
		}

		var waitingAnywhere int64
		err = tx.Model(&model.WaitingEntry{}).
			Where("status = ?", model.StatusWaiting).
			Count(&waitingAnywhere).Error
		if err != nil {
			return fmt.Errorf("failed to count waiting entries: %w", err)
		}
		if waitingAnywhere > 0 {
			return fmt.Errorf("%d occupants waiting: %w", waitingAnywhere, schedule.ErrQueueBlocksExtension)
		}

		if sess.Extended {
			return fmt.Errorf("session %d: %w", sessionID, schedule.ErrAlreadyExtended)
		}

		newCheckOut := sess.CheckOut.Add(schedule.SessionDuration)
		err = tx.Model(&sess).Updates(map[string]any{
			"check_out": newCheckOut,
			"extended":  true,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to extend session %d: %w", sessionID, err)
		}
		sess.CheckOut = newCheckOut
		sess.Extended = true
		extended = &sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return extended, nil
}

// MarkSessionDone finishes a session, keeping its check-out as the historical
// deadline. Idempotent on an already-done session. Freed capacity re-runs the
// queue-head check for the room.
func (s *gormStore) MarkSessionDone(ctx context.Context, now time.Time, sessionID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.Session
		err := tx.First(&sess, sessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("session %d: %w", sessionID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load session %d: %w", sessionID, err)
		}
		if sess.Status == model.StatusDone {
			return nil
		}

		if err := tx.Model(&sess).Update("status", model.StatusDone).Error; err != nil {
			return fmt.Errorf("failed to mark session %d done: %w", sessionID, err)
		}
		return promoteHeadIfFreed(tx, sess.RoomID, now)
	})
}

// RemoveSession hard-deletes a session, active or done. Used for erroneous
// or duplicate records; finished stays are normally kept via MarkSessionDone.
func (s *gormStore) RemoveSession(ctx context.Context, now time.Time, sessionID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.Session
		err := tx.First(&sess, sessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("session %d: %w", sessionID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load session %d: %w", sessionID, err)
		}

		wasActive := sess.Status != model.StatusDone
		if err := tx.Delete(&sess).Error; err != nil {
			return fmt.Errorf("failed to delete session %d: %w", sessionID, err)
		}
		if wasActive {
			return promoteHeadIfFreed(tx, sess.RoomID, now)
		}
		return nil
	})
}

// MoveSessionRoom re-homes an active session, subject to the target's
// capacity. The vacated room gets the usual freed-capacity check.
func (s *gormStore) MoveSessionRoom(ctx context.Context, now time.Time, sessionID, newRoomID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.Session
		err := tx.Where("id = ? AND status <> ?", sessionID, model.StatusDone).First(&sess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("session %d: %w", sessionID, schedule.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load session %d: %w", sessionID, err)
		}
		if sess.RoomID == newRoomID {
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

		oldRoomID := sess.RoomID
		if err := tx.Model(&sess).Update("room_id", newRoomID).Error; err != nil {
			return fmt.Errorf("failed to move session %d: %w", sessionID, err)
		}
		return promoteHeadIfFreed(tx, oldRoomID, now)
	})
}
