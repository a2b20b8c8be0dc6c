package ws

import "encoding/json"

// Message is the wire envelope for both directions: a type tag plus a
// type-specific payload. Unrecognized types are rejected at the router,
// never forwarded.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message types - client to server
const (
	TypeHello         = "hello"
	TypeCreateRoom    = "create_room"
	TypeJoinRoom      = "join_room"
	TypeLeaveRoom     = "leave_room"
	TypeReady         = "ready"
	TypeEnqueueMatch  = "enqueue_match"
	TypeCancelMatch   = "cancel_match"
	TypePlayerState   = "player_state"
	TypePlayerShoot   = "player_shoot"
	TypePlayerHit     = "player_hit"
	TypeSendHazard    = "send_hazard"
	TypePlayerDied    = "player_died"
	TypePlayerRespawn = "player_respawn"
	TypeSpawnEnemy    = "spawn_enemy"
	TypeSpawnBoss     = "spawn_boss"
	TypeBossDamage    = "boss_damage"
	TypeBossDefeated  = "boss_defeated"
	TypeRoundEnd      = "round_end"
	TypeChat          = "chat_message"
	TypeEndGame       = "end_game"
	TypeHeartbeat     = "heartbeat"
)

// Message types - server to client
const (
	TypeConnected      = "connected"
	TypeRoomCreated    = "room_created"
	TypeRoomJoined     = "room_joined"
	TypePeerJoined     = "peer_joined"
	TypePeerLeft       = "peer_left"
	TypePeerReady      = "peer_ready"
	TypeMatchFound     = "match_found"
	TypeMatchQueued    = "match_queued"
	TypeMatchTimeout   = "match_timeout"
	TypeOpponentUpdate = "opponent_update"
	TypeGameOver       = "game_over"
	TypeError          = "error"
)

// ErrorMessage is sent when a request is rejected. Code is a stable
// machine-readable reason the client can branch on.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage creates a Message with an error payload.
func NewErrorMessage(code, msg string) Message {
	data, _ := json.Marshal(ErrorMessage{Code: code, Message: msg})
	return Message{Type: TypeError, Data: data}
}

// NewMessage creates a Message with a typed payload.
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Data: data}, nil
}
