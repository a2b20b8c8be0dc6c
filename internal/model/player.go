package model

import "time"

// PlayerID is an opaque identifier for a player. It is chosen client-side
// or issued by the server on connect; the core treats it as a validated
// token and never authenticates it itself.
type PlayerID string

// Player is the identity attached to a live connection.
type Player struct {
	ID          PlayerID
	DisplayName string
	CreatedAt   time.Time
}
