package handler

import (
	"time"

	"github.com/legionlabs/spacefight-server/internal/model"
)

// Wire views of domain state. Slot timestamps and internal bookkeeping
// stay server-side; clients only see what they can act on.

// SlotView is a room occupant as exposed on the wire.
type SlotView struct {
	Number   int            `json:"slot"`
	PlayerID model.PlayerID `json:"player_id"`
	Name     string         `json:"name"`
	Ready    bool           `json:"ready"`
}

// RoomView is a room as exposed on the wire.
type RoomView struct {
	Code       model.RoomCode   `json:"room_code"`
	Mode       model.GameMode   `json:"mode"`
	Difficulty string           `json:"difficulty,omitempty"`
	Status     model.RoomStatus `json:"status"`
	Slots      []SlotView       `json:"slots"`
	CreatedAt  time.Time        `json:"created_at"`
}

func slotView(s model.Slot) SlotView {
	return SlotView{
		Number:   s.Number,
		PlayerID: s.Player,
		Name:     s.Name,
		Ready:    s.Ready,
	}
}

// NewRoomView builds the wire view of a room. The REST surface reuses
// it so both transports describe rooms identically.
func NewRoomView(r *model.Room) RoomView {
	return roomView(r)
}

func roomView(r *model.Room) RoomView {
	view := RoomView{
		Code:       r.Code,
		Mode:       r.Mode,
		Difficulty: r.Difficulty,
		Status:     r.Status,
		Slots:      make([]SlotView, 0, len(r.Slots)),
		CreatedAt:  r.CreatedAt,
	}
	for _, s := range r.Slots {
		view.Slots = append(view.Slots, slotView(s))
	}
	return view
}

// Inbound payloads.

type helloPayload struct {
	PlayerID   model.PlayerID `json:"player_id,omitempty"`
	PlayerName string         `json:"player_name"`
}

type createRoomPayload struct {
	Mode       model.GameMode `json:"mode"`
	Difficulty string         `json:"difficulty,omitempty"`
}

type joinRoomPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
}

type leaveRoomPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
}

type readyPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Ready    bool           `json:"ready"`
}

type enqueueMatchPayload struct {
	Mode model.GameMode `json:"mode"`
}

type endGamePayload struct {
	RoomCode model.RoomCode         `json:"room_code"`
	Winner   model.PlayerID         `json:"winner_id,omitempty"`
	Scores   map[model.PlayerID]int `json:"scores,omitempty"`
}

type gameplayPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
}

type chatPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Message  string         `json:"message"`
}

// Outbound payloads.

type connectedPayload struct {
	PlayerID   model.PlayerID `json:"player_id"`
	PlayerName string         `json:"player_name"`
}

type roomCreatedPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Slot     int            `json:"slot"`
	Room     RoomView       `json:"room"`
}

type roomJoinedPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Slot     int            `json:"slot"`
	Room     RoomView       `json:"room"`
}

type peerJoinedPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Room     RoomView       `json:"room"`
	Peer     SlotView       `json:"peer"`
}

type peerLeftPayload struct {
	RoomCode model.RoomCode    `json:"room_code"`
	Reason   model.LeaveReason `json:"reason"`
}

type peerReadyPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	PlayerID model.PlayerID `json:"player_id"`
	Ready    bool           `json:"ready"`
}

type matchQueuedPayload struct {
	TicketID model.TicketID `json:"ticket_id"`
	Mode     model.GameMode `json:"mode"`
}

type matchFoundPayload struct {
	RoomCode model.RoomCode `json:"room_code"`
	Room     RoomView       `json:"room"`
}

type gameOverPayload struct {
	RoomCode model.RoomCode         `json:"room_code"`
	Outcome  model.RoomStatus       `json:"outcome"`
	Winner   model.PlayerID         `json:"winner_id,omitempty"`
	Scores   map[model.PlayerID]int `json:"scores,omitempty"`
}
