package schedule

import "errors"

// Expected, recoverable engine errors. Store operations return these (or a
// wrapped form); the API layer maps them to response envelopes. They are
// never raised as fatal process errors.
var (
	// ErrDuplicateOccupant: the occupant already holds an active session or
	// a live waiting entry somewhere in the system.
	ErrDuplicateOccupant = errors.New("occupant already active or queued")

	// ErrRoomFull: the room's active session count has reached its capacity.
	ErrRoomFull = errors.New("room is full")

	// ErrQueueNotEmpty: the room has a waiting list, so direct sign-ups must
	// go through the queue.
	ErrQueueNotEmpty = errors.New("room has a waiting list")

	// ErrQueueBlocksExtension: someone is cleared for this room's slot, or
	// someone is waiting anywhere in the system.
	ErrQueueBlocksExtension = errors.New("waiting list blocks extension")

	// ErrAlreadyExtended: a session may be extended at most once.
	ErrAlreadyExtended = errors.New("session already extended")

	// ErrCapacityBelowOccupancy: a room may not shrink below its current
	// active session count.
	ErrCapacityBelowOccupancy = errors.New("capacity below active occupancy")

	// ErrTargetRoomFull: the move target has no free slot.
	ErrTargetRoomFull = errors.New("target room is full")

	ErrNotFound = errors.New("not found")
)
