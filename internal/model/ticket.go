package model

import "time"

// TicketID identifies a pending matchmaking request.
type TicketID string

// Ticket is a waiting player's request to be auto-paired into a room.
// A player holds at most one outstanding ticket at a time.
type Ticket struct {
	ID         TicketID
	Player     PlayerID
	PlayerName string
	Mode       GameMode
	EnqueuedAt time.Time
}
