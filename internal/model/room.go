package model

import "time"

// RoomCode is a short human-shareable identifier for joining rooms.
// A code is unique among rooms that have not ended; it is freed for
// reuse once the room ends.
type RoomCode string

// GameMode selects the multiplayer ruleset for a room.
type GameMode string

const (
	ModeCoop   GameMode = "coop"
	ModeVersus GameMode = "versus"
)

// ValidMode reports whether m is a recognized game mode.
func ValidMode(m GameMode) bool {
	return m == ModeCoop || m == ModeVersus
}

// RoomStatus represents the lifecycle state of a room.
type RoomStatus string

const (
	// RoomWaiting means the host is alone and the second slot is open.
	RoomWaiting RoomStatus = "waiting"
	// RoomActive means both slots are filled and relay is running.
	RoomActive RoomStatus = "active"
	// RoomAbandoned means a peer left an active room. Terminal for
	// gameplay; kept briefly for the remaining occupant's notification.
	RoomAbandoned RoomStatus = "abandoned"
	// RoomEnded means the room is finished and its code is freed.
	RoomEnded RoomStatus = "ended"
)

// RoomCapacity is the fixed number of participant slots per room.
const RoomCapacity = 2

// Slot is one of a room's fixed participant positions. Slot numbers
// start at 1; the host always occupies slot 1.
type Slot struct {
	Number   int
	Player   PlayerID
	Name     string
	Ready    bool
	JoinedAt time.Time
}

// LeaveReason distinguishes an explicit leave from a liveness timeout.
type LeaveReason string

const (
	LeaveExplicit LeaveReason = "explicit"
	LeaveTimeout  LeaveReason = "timeout"
)

// Room is a paired match context for exactly two participants.
type Room struct {
	Code       RoomCode
	Mode       GameMode
	Difficulty string
	Status     RoomStatus
	Slots      []Slot
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SlotOf returns the slot occupied by the given player, or nil.
func (r *Room) SlotOf(id PlayerID) *Slot {
	for i := range r.Slots {
		if r.Slots[i].Player == id {
			return &r.Slots[i]
		}
	}
	return nil
}

// Peer returns the slot of the other occupant, or nil if the player is
// alone (or not in the room at all).
func (r *Room) Peer(id PlayerID) *Slot {
	if r.SlotOf(id) == nil {
		return nil
	}
	for i := range r.Slots {
		if r.Slots[i].Player != id {
			return &r.Slots[i]
		}
	}
	return nil
}

// Host returns the slot-1 occupant, or nil if the room is empty.
func (r *Room) Host() *Slot {
	for i := range r.Slots {
		if r.Slots[i].Number == 1 {
			return &r.Slots[i]
		}
	}
	return nil
}

// IsFull reports whether every slot is occupied.
func (r *Room) IsFull() bool {
	return len(r.Slots) >= RoomCapacity
}

// RemoveSlot removes the given player's slot, preserving order.
// It reports whether a slot was removed.
func (r *Room) RemoveSlot(id PlayerID) bool {
	for i := range r.Slots {
		if r.Slots[i].Player == id {
			r.Slots = append(r.Slots[:i], r.Slots[i+1:]...)
			return true
		}
	}
	return false
}
