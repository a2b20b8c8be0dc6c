package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/matchmaking"
	"github.com/legionlabs/spacefight-server/internal/services/room"
	"github.com/legionlabs/spacefight-server/internal/services/session"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

// LobbyHandler covers everything a player does outside live gameplay:
// room lifecycle, readiness, and the matchmaking queue.
type LobbyHandler struct {
	sessions *session.Registry
	rooms    *room.Manager
	queue    *matchmaking.Queue
	logger   *slog.Logger
}

// NewLobbyHandler creates a lobby handler.
func NewLobbyHandler(
	sessions *session.Registry,
	rooms *room.Manager,
	queue *matchmaking.Queue,
	logger *slog.Logger,
) *LobbyHandler {
	return &LobbyHandler{
		sessions: sessions,
		rooms:    rooms,
		queue:    queue,
		logger:   logger.With(slog.String("component", "lobby")),
	}
}

// CreateRoom allocates a fresh room with the sender as host.
func (h *LobbyHandler) CreateRoom(ctx context.Context, client *ws.Client, player model.PlayerID, data json.RawMessage) {
	var payload createRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed create_room"))
		return
	}
	if !model.ValidMode(payload.Mode) {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Unknown game mode"))
		return
	}

	created, err := h.rooms.CreateRoom(ctx, player, h.nameOf(client), payload.Mode, payload.Difficulty)
	if err != nil {
		client.SendMessage(errorMessage(err))
		return
	}

	h.reply(client, ws.TypeRoomCreated, roomCreatedPayload{
		RoomCode: created.Code,
		Slot:     1,
		Room:     roomView(created),
	})
}

// JoinRoom fills the second slot of a waiting room by code.
func (h *LobbyHandler) JoinRoom(ctx context.Context, client *ws.Client, player model.PlayerID, data json.RawMessage) {
	var payload joinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomCode == "" {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed join_room"))
		return
	}

	joined, slot, err := h.rooms.JoinRoom(ctx, payload.RoomCode, player, h.nameOf(client))
	if err != nil {
		client.SendMessage(errorMessage(err))
		return
	}

	h.reply(client, ws.TypeRoomJoined, roomJoinedPayload{
		RoomCode: joined.Code,
		Slot:     slot,
		Room:     roomView(joined),
	})
}

// LeaveRoom removes the sender from their room. The peer notification
// rides on the room manager's event path, not here.
func (h *LobbyHandler) LeaveRoom(ctx context.Context, client *ws.Client, player model.PlayerID, data json.RawMessage) {
	var payload leaveRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomCode == "" {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed leave_room"))
		return
	}

	if err := h.rooms.LeaveRoom(ctx, payload.RoomCode, player, model.LeaveExplicit); err != nil {
		client.SendMessage(errorMessage(err))
		return
	}
}

// Ready flips the sender's ready flag and tells the peer.
func (h *LobbyHandler) Ready(ctx context.Context, client *ws.Client, player model.PlayerID, data json.RawMessage) {
	var payload readyPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomCode == "" {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed ready"))
		return
	}

	if _, err := h.rooms.SetReady(ctx, payload.RoomCode, player, payload.Ready); err != nil {
		client.SendMessage(errorMessage(err))
		return
	}
}

// EnqueueMatch puts the sender in the queue for a mode. Pairing may
// happen synchronously, in which case the match_found notification
// lands right behind the match_queued acknowledgment.
func (h *LobbyHandler) EnqueueMatch(ctx context.Context, client *ws.Client, player model.PlayerID, data json.RawMessage) {
	var payload enqueueMatchPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed enqueue_match"))
		return
	}
	if !model.ValidMode(payload.Mode) {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Unknown game mode"))
		return
	}

	ticketID, err := h.queue.Enqueue(ctx, player, h.nameOf(client), payload.Mode)
	if err != nil {
		client.SendMessage(errorMessage(err))
		return
	}

	h.reply(client, ws.TypeMatchQueued, matchQueuedPayload{
		TicketID: ticketID,
		Mode:     payload.Mode,
	})
}

// CancelMatch withdraws the sender's queue ticket. Cancelling with no
// ticket outstanding is a no-op, not an error: the ticket may have just
// been consumed by a pairing that is already on its way to the client.
func (h *LobbyHandler) CancelMatch(ctx context.Context, client *ws.Client, player model.PlayerID) {
	if err := h.queue.Dequeue(ctx, player); err != nil {
		client.SendMessage(errorMessage(err))
		return
	}
}

// EndGame finishes the sender's active room with an outcome. Both
// occupants get the final record through the notifier.
func (h *LobbyHandler) EndGame(ctx context.Context, client *ws.Client, player model.PlayerID, data json.RawMessage) {
	var payload endGamePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomCode == "" {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed end_game"))
		return
	}

	err := h.rooms.EndGame(ctx, payload.RoomCode, player, payload.Winner, payload.Scores)
	if err != nil {
		// A second end_game for the same room races the first; the room
		// is already gone and the sender already has its game_over.
		if errors.Is(err, model.ErrRoomNotFound) {
			return
		}
		client.SendMessage(errorMessage(err))
		return
	}
}

func (h *LobbyHandler) nameOf(client *ws.Client) string {
	if b, ok := h.sessions.Get(client.ID); ok {
		return b.Name
	}
	return "Pilot"
}

func (h *LobbyHandler) reply(client *ws.Client, msgType string, payload any) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		h.logger.Error("encoding reply", slog.String("type", msgType), slog.Any("error", err))
		client.SendMessage(ws.NewErrorMessage(CodeInternalError, "Internal server error"))
		return
	}
	client.SendMessage(msg)
}
