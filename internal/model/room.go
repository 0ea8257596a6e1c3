package model

import "time"

// Room is a shared physical room with a bounded occupant capacity.
type Room struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"size:128;not null"`
	MaxCapacity int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`

	// Associations
	Sessions       []Session      `gorm:"foreignKey:RoomID"`
	WaitingEntries []WaitingEntry `gorm:"foreignKey:RoomID"`
}
