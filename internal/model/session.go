package model

import "time"

// Session status values. A done session is a historical record and is kept
// until explicitly removed.
const (
	StatusActive = "active"
	StatusDone   = "done"
)

// Session is one occupant's stay in a room. CheckOut is the deadline, not
// the observed exit time; marking a session done never changes it.
type Session struct {
	ID           int64     `gorm:"primaryKey"`
	Ref          string    `gorm:"size:36;uniqueIndex;not null"` // public reference code
	RoomID       int64     `gorm:"index;not null"`
	OccupantID   string    `gorm:"size:64;index;not null"`
	OccupantName string    `gorm:"size:128;not null"`
	CheckIn      time.Time `gorm:"not null"`
	CheckOut     time.Time `gorm:"not null;index"`
	Extended     bool      `gorm:"not null;default:false"`
	Status       string    `gorm:"size:16;not null;default:active;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	Room Room `gorm:"constraint:OnDelete:CASCADE"`
}
