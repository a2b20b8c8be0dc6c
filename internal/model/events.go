package model

import "encoding/json"

// EventKind identifies a relayed gameplay event. The set is closed:
// anything else is rejected at the boundary, never forwarded.
type EventKind string

const (
	// EventPosition carries a player's position/velocity sample.
	EventPosition EventKind = "position"
	// EventShoot announces a fired bullet.
	EventShoot EventKind = "shoot"
	// EventHit reports a bullet hit on the opponent.
	EventHit EventKind = "hit"
	// EventHazard sends a hazard to the opponent in versus mode.
	EventHazard EventKind = "hazard"
	// EventDied reports the sender's ship being destroyed.
	EventDied EventKind = "died"
	// EventRespawn announces the sender coming back after a death.
	EventRespawn EventKind = "respawn"
	// EventEnemySpawn seeds an enemy on the peer's screen in co-op.
	EventEnemySpawn EventKind = "enemy_spawn"
	// EventBossSpawn starts a boss encounter for both players.
	EventBossSpawn EventKind = "boss_spawn"
	// EventBossDamage reports damage dealt to a shared boss.
	EventBossDamage EventKind = "boss_damage"
	// EventBossDefeated ends a boss encounter.
	EventBossDefeated EventKind = "boss_defeated"
	// EventRoundEnd closes out a round without ending the match.
	EventRoundEnd EventKind = "round_end"
	// EventChat is a lobby/game chat line, delivered room-wide.
	EventChat EventKind = "chat"
)

// ValidEventKind reports whether k is one of the relayable kinds.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventPosition, EventShoot, EventHit, EventHazard,
		EventDied, EventRespawn, EventEnemySpawn,
		EventBossSpawn, EventBossDamage, EventBossDefeated,
		EventRoundEnd, EventChat:
		return true
	}
	return false
}

// RelayedEvent is an ephemeral gameplay message flowing through the
// relay. The payload is opaque to the server; each client computes its
// own game outcome from the events it receives.
type RelayedEvent struct {
	Kind    EventKind       `json:"kind"`
	Origin  PlayerID        `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}
