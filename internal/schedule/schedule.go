// Package schedule holds the pure scheduling rules of the occupancy engine:
// fixed durations, waiting-list slot estimates, the room availability
// predicate, and session display status. Everything here takes time as an
// argument so callers (store, poller, tests) control the clock.
package schedule

import "time"

const (
	// SessionDuration is the fixed length of an occupancy session and of
	// one queue turnover slot. Extensions add exactly one more.
	SessionDuration = 2 * time.Hour

	// WarningWindow is how long before check-out a session is flagged as
	// ending soon.
	WarningWindow = 10 * time.Minute
)

// Clock supplies the current time in the configured location.
type Clock interface {
	Now() time.Time
}

type realClock struct {
	loc *time.Location
}

// NewClock returns a Clock reading the system time in loc.
func NewClock(loc *time.Location) Clock {
	return realClock{loc: loc}
}

func (c realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// SlotTimes returns the estimated availability and completion times for the
// waiting entry at zero-based queue position. The model is a fixed FIFO
// turnover: each slot frees SessionDuration after the previous one, starting
// from base (the room's earliest future check-out, or now for an idle room).
// Early completions and extensions of sessions ahead in the queue are
// deliberately ignored; estimates only move on structural queue events.
func SlotTimes(base time.Time, position int) (availableAt, completeAt time.Time) {
	availableAt = base.Add(time.Duration(position) * SessionDuration)
	completeAt = availableAt.Add(SessionDuration)
	return availableAt, completeAt
}

// RoomAvailable reports whether a room can seat a new occupant right now.
// Being under capacity is not enough: a slot that looks free by count may
// still be physically occupied until its timer elapses, so the room must
// also have no session still running (active with a future check-out).
func RoomAvailable(activeCount, maxCapacity, runningCount int) bool {
	return activeCount < maxCapacity && runningCount == 0
}

// HeadEligible reports whether a waiting-list head may be cleared for
// promotion: its estimated availability time has elapsed.
func HeadEligible(estimatedAvailableAt *time.Time, now time.Time) bool {
	return estimatedAvailableAt != nil && !now.Before(*estimatedAvailableAt)
}

// Display statuses derived from a session's state and deadline.
const (
	DisplayActive   = "active"
	DisplayWarning  = "warning"
	DisplayOvertime = "overtime"
	DisplayDone     = "done"
)

// DisplayStatus classifies a session for presentation: done sessions stay
// done, a session past its check-out is overtime, one inside the warning
// window is warning, anything else is active.
func DisplayStatus(done bool, checkOut, now time.Time) string {
	switch {
	case done:
		return DisplayDone
	case now.After(checkOut):
		return DisplayOvertime
	case checkOut.Sub(now) <= WarningWindow:
		return DisplayWarning
	default:
		return DisplayActive
	}
}

// RemainingSeconds is the countdown value for a session, clamped at zero.
func RemainingSeconds(checkOut, now time.Time) int {
	if !checkOut.After(now) {
		return 0
	}
	return int(checkOut.Sub(now).Seconds())
}
