package model

import "errors"

// Common errors used across the application
var (
	// Room errors
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomNotActive      = errors.New("room is not active")
	ErrAlreadyInRoom      = errors.New("player is already in a room")
	ErrNotInRoom          = errors.New("player is not in the room")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique room code")

	// Matchmaking errors
	ErrAlreadyQueued  = errors.New("player already has an outstanding ticket")
	ErrTicketNotFound = errors.New("ticket not found")

	// Session errors
	ErrDuplicateBinding = errors.New("identity is already bound to a live connection")
	ErrNotBound         = errors.New("connection has no bound identity")

	// Event errors
	ErrUnknownEventKind = errors.New("unrecognized event kind")
)
