package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"unicode/utf8"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/relay"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

// maxChatLength caps chat lines in runes; longer lines are truncated,
// not rejected, matching what players expect from a chat box.
const maxChatLength = 100

// GameplayHandler feeds in-game traffic into the relay. It validates
// just enough to address the event; the payload itself stays opaque.
type GameplayHandler struct {
	relay  *relay.Relay
	logger *slog.Logger
}

// NewGameplayHandler creates a gameplay handler.
func NewGameplayHandler(r *relay.Relay, logger *slog.Logger) *GameplayHandler {
	return &GameplayHandler{
		relay:  r,
		logger: logger.With(slog.String("component", "gameplay")),
	}
}

// Publish forwards a gameplay event to the sender's room peer. The
// room code travels in the payload alongside the game data and is
// stripped of nothing: the peer sees the payload exactly as sent.
func (h *GameplayHandler) Publish(ctx context.Context, client *ws.Client, player model.PlayerID, kind model.EventKind, data json.RawMessage) {
	var payload gameplayPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomCode == "" {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Missing room_code"))
		return
	}

	if err := h.relay.Publish(ctx, payload.RoomCode, player, kind, data); err != nil {
		client.SendMessage(errorMessage(err))
	}
}

// Chat relays a chat line, truncated to the length cap. Unlike the
// positional events the chat payload is rebuilt server-side so the cap
// cannot be bypassed.
func (h *GameplayHandler) Chat(ctx context.Context, client *ws.Client, player model.PlayerID, data json.RawMessage) {
	var payload chatPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomCode == "" {
		client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed chat_message"))
		return
	}

	if utf8.RuneCountInString(payload.Message) > maxChatLength {
		runes := []rune(payload.Message)
		payload.Message = string(runes[:maxChatLength])
	}

	out, err := json.Marshal(payload)
	if err != nil {
		client.SendMessage(ws.NewErrorMessage(CodeInternalError, "Internal server error"))
		return
	}

	if err := h.relay.Publish(ctx, payload.RoomCode, player, model.EventChat, out); err != nil {
		client.SendMessage(errorMessage(err))
	}
}
