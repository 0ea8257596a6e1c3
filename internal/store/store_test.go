package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bilik-backend/internal/model"
	"bilik-backend/internal/schedule"
)

// newTestStore opens a per-test in-memory SQLite database. The database is
// named after the test so parallel packages never share state.
func newTestStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&model.Room{}, &model.Session{}, &model.WaitingEntry{}))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewGormStore(db), db
}

func mustCreateRoom(t *testing.T, s Store, name string, capacity int) *model.Room {
	t.Helper()
	room, err := s.CreateRoom(context.Background(), name, capacity)
	require.NoError(t, err)
	return room
}

var t0 = time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC)

func TestStartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("direct start sets a two hour deadline", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)

		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		assert.Equal(t, t0, sess.CheckIn)
		assert.Equal(t, t0.Add(2*time.Hour), sess.CheckOut)
		assert.Equal(t, model.StatusActive, sess.Status)
		assert.False(t, sess.Extended)
		assert.NotEmpty(t, sess.Ref)
	})

	t.Run("occupant cannot be active in two rooms", func(t *testing.T) {
		s, _ := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		_, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		_, err = s.StartSession(ctx, t0, roomB.ID, "NIK-001", "Andi")
		assert.ErrorIs(t, err, schedule.ErrDuplicateOccupant)
	})

	t.Run("full room rejects the start", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)

		_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		_, err = s.StartSession(ctx, t0, room.ID, "NIK-002", "Budi")
		assert.ErrorIs(t, err, schedule.ErrRoomFull)
	})

	t.Run("a populated queue blocks direct starts even with free slots", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)

		_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		// Budi queues while Andi is still running, so he waits.
		_, available, err := s.JoinWaiting(ctx, t0.Add(10*time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)
		require.False(t, available)

		// Citra may not jump the queue into the free second slot.
		_, err = s.StartSession(ctx, t0.Add(20*time.Minute), room.ID, "NIK-003", "Citra")
		assert.ErrorIs(t, err, schedule.ErrQueueNotEmpty)
	})

	t.Run("unknown room", func(t *testing.T) {
		s, _ := newTestStore(t)
		_, err := s.StartSession(ctx, t0, 9999, "NIK-001", "Andi")
		assert.ErrorIs(t, err, schedule.ErrNotFound)
	})

	t.Run("capacity invariant holds under repeated attempts", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)

		for i := 0; i < 5; i++ {
			s.StartSession(ctx, t0, room.ID, fmt.Sprintf("NIK-%03d", i), "X")
		}
		var active int64
		db.Model(&model.Session{}).
			Where("room_id = ? AND status <> ?", room.ID, model.StatusDone).
			Count(&active)
		assert.LessOrEqual(t, active, int64(room.MaxCapacity))
	})
}

func TestJoinWaiting(t *testing.T) {
	ctx := context.Background()

	t.Run("available room clears the entry immediately", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)

		entry, available, err := s.JoinWaiting(ctx, t0, room.ID, "NIK-001", "Andi", "0812")
		require.NoError(t, err)
		assert.True(t, available)
		assert.Equal(t, model.StatusDone, entry.Status)
	})

	t.Run("occupied room queues with a fixed turnover estimate", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)

		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		entry, available, err := s.JoinWaiting(ctx, t0.Add(15*time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)
		assert.False(t, available)
		assert.Equal(t, model.StatusWaiting, entry.Status)
		require.NotNil(t, entry.EstimatedAvailableAt)
		require.NotNil(t, entry.EstimatedCompleteAt)
		assert.Equal(t, sess.CheckOut.Unix(), entry.EstimatedAvailableAt.Unix())
		assert.Equal(t, sess.CheckOut.Add(2*time.Hour).Unix(), entry.EstimatedCompleteAt.Unix())
	})

	t.Run("under capacity but still running counts as unavailable", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)

		_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		entry, available, err := s.JoinWaiting(ctx, t0.Add(5*time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)
		assert.False(t, available)
		assert.Equal(t, model.StatusWaiting, entry.Status)
	})

	t.Run("estimates follow queue position, not individual check-outs", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)

		// Two occupants with staggered deadlines t1 < t2.
		sess1, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		_, err = s.StartSession(ctx, t0.Add(30*time.Minute), room.ID, "NIK-002", "Budi")
		require.NoError(t, err)
		t1 := sess1.CheckOut

		entryC, _, err := s.JoinWaiting(ctx, t0.Add(time.Hour), room.ID, "NIK-003", "Citra", "0813")
		require.NoError(t, err)
		entryD, _, err := s.JoinWaiting(ctx, t0.Add(time.Hour+time.Minute), room.ID, "NIK-004", "Dewi", "0814")
		require.NoError(t, err)

		// Position 0 gets t1; position 1 gets t1+2h, not t2.
		require.NotNil(t, entryC.EstimatedAvailableAt)
		require.NotNil(t, entryD.EstimatedAvailableAt)
		assert.Equal(t, t1.Unix(), entryC.EstimatedAvailableAt.Unix())
		assert.Equal(t, t1.Add(2*time.Hour).Unix(), entryD.EstimatedAvailableAt.Unix())
	})

	t.Run("active occupant cannot queue", func(t *testing.T) {
		s, _ := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		_, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		_, _, err = s.JoinWaiting(ctx, t0, roomB.ID, "NIK-001", "Andi", "0812")
		assert.ErrorIs(t, err, schedule.ErrDuplicateOccupant)
	})

	t.Run("queued occupant cannot queue twice", func(t *testing.T) {
		s, _ := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		_, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		_, _, err = s.JoinWaiting(ctx, t0, roomA.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)

		_, _, err = s.JoinWaiting(ctx, t0, roomB.ID, "NIK-002", "Budi", "0812")
		assert.ErrorIs(t, err, schedule.ErrDuplicateOccupant)
	})
}

func TestExtendSession(t *testing.T) {
	ctx := context.Background()

	t.Run("single extension adds two hours", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		extended, err := s.ExtendSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, t0.Add(4*time.Hour), extended.CheckOut)
		assert.True(t, extended.Extended)

		_, err = s.ExtendSession(ctx, sess.ID)
		assert.ErrorIs(t, err, schedule.ErrAlreadyExtended)
	})

	t.Run("waiting entry anywhere blocks extension", func(t *testing.T) {
		s, _ := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		sessA, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		_, err = s.StartSession(ctx, t0, roomB.ID, "NIK-002", "Budi")
		require.NoError(t, err)

		// Citra queues for room B; even room A may not extend now.
		_, _, err = s.JoinWaiting(ctx, t0.Add(time.Minute), roomB.ID, "NIK-003", "Citra", "0813")
		require.NoError(t, err)

		_, err = s.ExtendSession(ctx, sessA.ID)
		assert.ErrorIs(t, err, schedule.ErrQueueBlocksExtension)
	})

	t.Run("cleared entry in the same room blocks extension", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)

		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		_, _, err = s.JoinWaiting(ctx, t0.Add(time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)

		// Operator clears Budi manually; the slot is spoken for.
		var entry model.WaitingEntry
		require.NoError(t, s.DB().Where("occupant_id = ?", "NIK-002").First(&entry).Error)
		require.NoError(t, s.MarkWaitingDone(ctx, entry.ID))

		_, err = s.ExtendSession(ctx, sess.ID)
		assert.ErrorIs(t, err, schedule.ErrQueueBlocksExtension)
	})

	t.Run("done or missing session", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		require.NoError(t, s.MarkSessionDone(ctx, t0.Add(time.Hour), sess.ID))

		_, err = s.ExtendSession(ctx, sess.ID)
		assert.ErrorIs(t, err, schedule.ErrNotFound)

		_, err = s.ExtendSession(ctx, 9999)
		assert.ErrorIs(t, err, schedule.ErrNotFound)
	})
}

func TestMarkSessionDone(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the check-out and is idempotent", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)

		require.NoError(t, s.MarkSessionDone(ctx, t0.Add(time.Hour), sess.ID))
		require.NoError(t, s.MarkSessionDone(ctx, t0.Add(time.Hour), sess.ID))

		var stored model.Session
		require.NoError(t, db.First(&stored, sess.ID).Error)
		assert.Equal(t, model.StatusDone, stored.Status)
		assert.Equal(t, sess.CheckOut.Unix(), stored.CheckOut.Unix())
	})

	t.Run("finishing early does not clear the queue head before its estimate", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		entry, _, err := s.JoinWaiting(ctx, t0.Add(5*time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)

		// Andi leaves 90 minutes early; Budi's slot is still projected at t0+2h.
		require.NoError(t, s.MarkSessionDone(ctx, t0.Add(30*time.Minute), sess.ID))

		var stored model.WaitingEntry
		require.NoError(t, db.First(&stored, entry.ID).Error)
		assert.Equal(t, model.StatusWaiting, stored.Status)
	})

	t.Run("clears the head once the estimate has elapsed", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		entry, _, err := s.JoinWaiting(ctx, t0.Add(5*time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)

		// Andi is marked done after his deadline already passed.
		require.NoError(t, s.MarkSessionDone(ctx, t0.Add(2*time.Hour+time.Minute), sess.ID))

		var stored model.WaitingEntry
		require.NoError(t, db.First(&stored, entry.ID).Error)
		assert.Equal(t, model.StatusDone, stored.Status)
	})
}

func TestRemoveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("hard delete works on active and done records", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)
		sess1, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		sess2, err := s.StartSession(ctx, t0, room.ID, "NIK-002", "Budi")
		require.NoError(t, err)
		require.NoError(t, s.MarkSessionDone(ctx, t0, sess2.ID))

		require.NoError(t, s.RemoveSession(ctx, t0.Add(time.Minute), sess1.ID))
		require.NoError(t, s.RemoveSession(ctx, t0.Add(time.Minute), sess2.ID))

		var count int64
		db.Model(&model.Session{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("missing session", func(t *testing.T) {
		s, _ := newTestStore(t)
		err := s.RemoveSession(ctx, t0, 123)
		assert.ErrorIs(t, err, schedule.ErrNotFound)
	})
}

func TestUpdateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("shrink below occupancy is rejected and leaves capacity unchanged", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 2)
		_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		_, err = s.StartSession(ctx, t0, room.ID, "NIK-002", "Budi")
		require.NoError(t, err)

		err = s.UpdateRoom(ctx, t0, room.ID, "Bilik A", 1)
		assert.ErrorIs(t, err, schedule.ErrCapacityBelowOccupancy)

		var stored model.Room
		require.NoError(t, db.First(&stored, room.ID).Error)
		assert.Equal(t, 2, stored.MaxCapacity)
	})

	t.Run("rename and grow", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)

		require.NoError(t, s.UpdateRoom(ctx, t0, room.ID, "Bilik A+", 3))

		var stored model.Room
		require.NoError(t, db.First(&stored, room.ID).Error)
		assert.Equal(t, "Bilik A+", stored.Name)
		assert.Equal(t, 3, stored.MaxCapacity)
	})

	t.Run("capacity unlock on a time-idle room clears the head", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		entry, _, err := s.JoinWaiting(ctx, t0.Add(5*time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)

		// Long past Andi's deadline the room is time-idle even though his
		// record is still active; growing the room unlocks the head.
		now := t0.Add(3 * time.Hour)
		require.NoError(t, s.UpdateRoom(ctx, now, room.ID, "Bilik A", 2))

		var stored model.WaitingEntry
		require.NoError(t, db.First(&stored, entry.ID).Error)
		assert.Equal(t, model.StatusDone, stored.Status)
	})

	t.Run("resize while occupants are running does not clear the head", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		entry, _, err := s.JoinWaiting(ctx, t0.Add(5*time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)

		require.NoError(t, s.UpdateRoom(ctx, t0.Add(30*time.Minute), room.ID, "Bilik A", 2))

		var stored model.WaitingEntry
		require.NoError(t, db.First(&stored, entry.ID).Error)
		assert.Equal(t, model.StatusWaiting, stored.Status)
	})
}

func TestPromoteWaiting(t *testing.T) {
	ctx := context.Background()

	t.Run("waiting entry is not promotable", func(t *testing.T) {
		s, _ := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)
		_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		entry, _, err := s.JoinWaiting(ctx, t0.Add(time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)

		_, err = s.PromoteWaiting(ctx, t0.Add(time.Minute), entry.ID, nil)
		assert.ErrorIs(t, err, schedule.ErrNotFound)
	})

	t.Run("cleared entry becomes a session and is deleted", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)

		entry, available, err := s.JoinWaiting(ctx, t0, room.ID, "NIK-001", "Andi", "0812")
		require.NoError(t, err)
		require.True(t, available)

		now := t0.Add(time.Minute)
		sess, err := s.PromoteWaiting(ctx, now, entry.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, room.ID, sess.RoomID)
		assert.Equal(t, "NIK-001", sess.OccupantID)
		assert.Equal(t, "Andi", sess.OccupantName)
		assert.Equal(t, now.Add(2*time.Hour), sess.CheckOut)

		var count int64
		db.Model(&model.WaitingEntry{}).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("full room fails the promotion and keeps the entry", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)

		entry, _, err := s.JoinWaiting(ctx, t0, room.ID, "NIK-001", "Andi", "0812")
		require.NoError(t, err)
		require.Equal(t, model.StatusDone, entry.Status)

		// Someone else takes the slot via another queue-free path first.
		_, err = s.StartSession(ctx, t0.Add(time.Minute), room.ID, "NIK-002", "Budi")
		require.NoError(t, err)

		_, err = s.PromoteWaiting(ctx, t0.Add(2*time.Minute), entry.ID, nil)
		assert.ErrorIs(t, err, schedule.ErrRoomFull)

		var stored model.WaitingEntry
		require.NoError(t, db.First(&stored, entry.ID).Error)
		assert.Equal(t, model.StatusDone, stored.Status)
	})

	t.Run("promotion into a different room", func(t *testing.T) {
		s, _ := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		entry, _, err := s.JoinWaiting(ctx, t0, roomA.ID, "NIK-001", "Andi", "0812")
		require.NoError(t, err)

		sess, err := s.PromoteWaiting(ctx, t0.Add(time.Minute), entry.ID, &roomB.ID)
		require.NoError(t, err)
		assert.Equal(t, roomB.ID, sess.RoomID)
	})
}

func TestMoveWaitingRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("full target is rejected", func(t *testing.T) {
		s, _ := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		_, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		_, err = s.StartSession(ctx, t0, roomB.ID, "NIK-002", "Budi")
		require.NoError(t, err)
		entry, _, err := s.JoinWaiting(ctx, t0.Add(time.Minute), roomA.ID, "NIK-003", "Citra", "0813")
		require.NoError(t, err)

		err = s.MoveWaitingRoom(ctx, t0.Add(2*time.Minute), entry.ID, roomB.ID)
		assert.ErrorIs(t, err, schedule.ErrTargetRoomFull)
	})

	t.Run("move re-anchors the estimate on the new room", func(t *testing.T) {
		s, db := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 2)

		_, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		sessB, err := s.StartSession(ctx, t0.Add(time.Hour), roomB.ID, "NIK-002", "Budi")
		require.NoError(t, err)
		entry, _, err := s.JoinWaiting(ctx, t0.Add(90*time.Minute), roomA.ID, "NIK-003", "Citra", "0813")
		require.NoError(t, err)

		require.NoError(t, s.MoveWaitingRoom(ctx, t0.Add(91*time.Minute), entry.ID, roomB.ID))

		var stored model.WaitingEntry
		require.NoError(t, db.First(&stored, entry.ID).Error)
		assert.Equal(t, roomB.ID, stored.RoomID)
		assert.Equal(t, model.StatusWaiting, stored.Status)
		require.NotNil(t, stored.EstimatedAvailableAt)
		assert.Equal(t, sessB.CheckOut.Unix(), stored.EstimatedAvailableAt.Unix())
	})
}

func TestRemoveWaiting(t *testing.T) {
	ctx := context.Background()

	t.Run("withdrawal re-spaces the entries behind", func(t *testing.T) {
		s, db := newTestStore(t)
		room := mustCreateRoom(t, s, "Bilik A", 1)

		sess, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		entryB, _, err := s.JoinWaiting(ctx, t0.Add(time.Minute), room.ID, "NIK-002", "Budi", "0812")
		require.NoError(t, err)
		entryC, _, err := s.JoinWaiting(ctx, t0.Add(2*time.Minute), room.ID, "NIK-003", "Citra", "0813")
		require.NoError(t, err)

		require.NotNil(t, entryC.EstimatedAvailableAt)
		require.Equal(t, sess.CheckOut.Add(2*time.Hour).Unix(), entryC.EstimatedAvailableAt.Unix())

		require.NoError(t, s.RemoveWaiting(ctx, t0.Add(3*time.Minute), entryB.ID))

		var stored model.WaitingEntry
		require.NoError(t, db.First(&stored, entryC.ID).Error)
		require.NotNil(t, stored.EstimatedAvailableAt)
		assert.Equal(t, sess.CheckOut.Unix(), stored.EstimatedAvailableAt.Unix())

		var count int64
		db.Model(&model.WaitingEntry{}).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("missing entry", func(t *testing.T) {
		s, _ := newTestStore(t)
		err := s.RemoveWaiting(ctx, t0, 77)
		assert.ErrorIs(t, err, schedule.ErrNotFound)
	})
}

func TestSweepEligibleHeads(t *testing.T) {
	ctx := context.Background()

	s, db := newTestStore(t)
	roomA := mustCreateRoom(t, s, "Bilik A", 1)
	roomB := mustCreateRoom(t, s, "Bilik B", 1)

	// Room A: occupant until t0+2h, two queued behind.
	_, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
	require.NoError(t, err)
	headA, _, err := s.JoinWaiting(ctx, t0.Add(time.Minute), roomA.ID, "NIK-002", "Budi", "0812")
	require.NoError(t, err)
	secondA, _, err := s.JoinWaiting(ctx, t0.Add(2*time.Minute), roomA.ID, "NIK-003", "Citra", "0813")
	require.NoError(t, err)

	// Room B: occupant until t0+3h (started later), one queued.
	_, err = s.StartSession(ctx, t0.Add(time.Hour), roomB.ID, "NIK-004", "Dewi")
	require.NoError(t, err)
	headB, _, err := s.JoinWaiting(ctx, t0.Add(61*time.Minute), roomB.ID, "NIK-005", "Eka", "0814")
	require.NoError(t, err)

	// Before any estimate has elapsed, nothing happens.
	cleared, err := s.SweepEligibleHeads(ctx, t0.Add(time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, cleared)

	// At t0+2h room A's head is due; room B's (t0+3h) is not. The second
	// entry in room A stays waiting regardless.
	cleared, err = s.SweepEligibleHeads(ctx, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{headA.ID}, cleared)

	var stored model.WaitingEntry
	require.NoError(t, db.First(&stored, headA.ID).Error)
	assert.Equal(t, model.StatusDone, stored.Status)
	stored = model.WaitingEntry{}
	require.NoError(t, db.First(&stored, secondA.ID).Error)
	assert.Equal(t, model.StatusWaiting, stored.Status)
	stored = model.WaitingEntry{}
	require.NoError(t, db.First(&stored, headB.ID).Error)
	assert.Equal(t, model.StatusWaiting, stored.Status)
}

func TestMoveSessionRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("full target is rejected", func(t *testing.T) {
		s, _ := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		sessA, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		_, err = s.StartSession(ctx, t0, roomB.ID, "NIK-002", "Budi")
		require.NoError(t, err)

		err = s.MoveSessionRoom(ctx, t0.Add(time.Minute), sessA.ID, roomB.ID)
		assert.ErrorIs(t, err, schedule.ErrTargetRoomFull)
	})

	t.Run("move keeps the deadline", func(t *testing.T) {
		s, db := newTestStore(t)
		roomA := mustCreateRoom(t, s, "Bilik A", 1)
		roomB := mustCreateRoom(t, s, "Bilik B", 1)

		sess, err := s.StartSession(ctx, t0, roomA.ID, "NIK-001", "Andi")
		require.NoError(t, err)
		require.NoError(t, s.MoveSessionRoom(ctx, t0.Add(time.Minute), sess.ID, roomB.ID))

		var stored model.Session
		require.NoError(t, db.First(&stored, sess.ID).Error)
		assert.Equal(t, roomB.ID, stored.RoomID)
		assert.Equal(t, sess.CheckOut.Unix(), stored.CheckOut.Unix())
	})
}

func TestDeleteRoom(t *testing.T) {
	ctx := context.Background()

	s, db := newTestStore(t)
	room := mustCreateRoom(t, s, "Bilik A", 1)
	other := mustCreateRoom(t, s, "Bilik B", 1)

	_, err := s.StartSession(ctx, t0, room.ID, "NIK-001", "Andi")
	require.NoError(t, err)
	_, _, err = s.JoinWaiting(ctx, t0.Add(time.Minute), room.ID, "NIK-002", "Budi", "0812")
	require.NoError(t, err)
	_, err = s.StartSession(ctx, t0, other.ID, "NIK-003", "Citra")
	require.NoError(t, err)

	require.NoError(t, s.DeleteRoom(ctx, room.ID))

	var roomCount, sessionCount, waitingCount int64
	db.Model(&model.Room{}).Count(&roomCount)
	db.Model(&model.Session{}).Count(&sessionCount)
	db.Model(&model.WaitingEntry{}).Count(&waitingCount)
	assert.Equal(t, int64(1), roomCount)
	assert.Equal(t, int64(1), sessionCount)
	assert.Equal(t, int64(0), waitingCount)

	err = s.DeleteRoom(ctx, room.ID)
	assert.ErrorIs(t, err, schedule.ErrNotFound)
}
