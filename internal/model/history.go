package model

import "time"

// MatchRecord is the durable summary of a finished room, written to
// PostgreSQL after the room reaches a terminal status. The core never
// blocks on recording it.
type MatchRecord struct {
	RoomCode   RoomCode
	Mode       GameMode
	Difficulty string
	Outcome    RoomStatus // RoomEnded or RoomAbandoned
	Players    []PlayerID
	Winner     PlayerID // empty for coop or abandoned matches
	Scores     map[PlayerID]int
	StartedAt  time.Time
	EndedAt    time.Time
}
