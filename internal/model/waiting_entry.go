package model

import "time"

// Waiting entry status values. StatusWaiting entries queue strictly by
// CreatedAt; a done entry is cleared for promotion into a Session and is
// deleted once promoted.
const (
	StatusWaiting = "waiting"
)

// WaitingEntry is one occupant's place in a room's FIFO waiting list.
// Both estimates are nil until the first recomputation assigns them.
type WaitingEntry struct {
	ID                   int64  `gorm:"primaryKey"`
	Ref                  string `gorm:"size:36;uniqueIndex;not null"`
	RoomID               int64  `gorm:"index;not null"`
	OccupantID           string `gorm:"size:64;index;not null"`
	OccupantName         string `gorm:"size:128;not null"`
	Phone                string `gorm:"size:32"`
	Status               string `gorm:"size:16;not null;default:waiting;index"`
	EstimatedAvailableAt *time.Time
	EstimatedCompleteAt  *time.Time
	CreatedAt            time.Time `gorm:"not null;index"`
	UpdatedAt            time.Time

	// Associations
	Room Room `gorm:"constraint:OnDelete:CASCADE"`
}
