package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/presence"
	"github.com/legionlabs/spacefight-server/internal/services/session"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

// Router dispatches inbound client messages to their handlers. The
// message-type set is closed: anything it does not recognize is
// rejected back to the sender and never forwarded anywhere.
//
// Every message except hello requires the connection to be bound to an
// identity first; the binding check happens here so the handlers can
// assume an authenticated player.
type Router struct {
	sessions *session.Registry
	monitor  *presence.Monitor
	lobby    *LobbyHandler
	gameplay *GameplayHandler
	logger   *slog.Logger
}

// NewRouter creates a message router.
func NewRouter(
	sessions *session.Registry,
	monitor *presence.Monitor,
	lobby *LobbyHandler,
	gameplay *GameplayHandler,
	logger *slog.Logger,
) *Router {
	return &Router{
		sessions: sessions,
		monitor:  monitor,
		lobby:    lobby,
		gameplay: gameplay,
		logger:   logger.With(slog.String("component", "router")),
	}
}

// HandleMessage processes one inbound message. It runs on the hub's
// dispatch goroutine; per-connection ordering is already guaranteed by
// the single read pump upstream.
func (r *Router) HandleMessage(cm *ws.ClientMessage) {
	ctx := context.Background()

	var msg ws.Message
	if err := json.Unmarshal(cm.Data, &msg); err != nil {
		cm.Client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed message"))
		return
	}

	// Any inbound frame proves the connection is alive.
	r.sessions.Touch(cm.Client.ID)

	if msg.Type == ws.TypeHello {
		r.handleHello(cm.Client, msg.Data)
		return
	}

	player, err := r.sessions.Resolve(cm.Client.ID)
	if err != nil {
		cm.Client.SendMessage(errorMessage(err))
		return
	}

	switch msg.Type {
	case ws.TypeCreateRoom:
		r.lobby.CreateRoom(ctx, cm.Client, player, msg.Data)
	case ws.TypeJoinRoom:
		r.lobby.JoinRoom(ctx, cm.Client, player, msg.Data)
	case ws.TypeLeaveRoom:
		r.lobby.LeaveRoom(ctx, cm.Client, player, msg.Data)
	case ws.TypeReady:
		r.lobby.Ready(ctx, cm.Client, player, msg.Data)
	case ws.TypeEnqueueMatch:
		r.lobby.EnqueueMatch(ctx, cm.Client, player, msg.Data)
	case ws.TypeCancelMatch:
		r.lobby.CancelMatch(ctx, cm.Client, player)
	case ws.TypeEndGame:
		r.lobby.EndGame(ctx, cm.Client, player, msg.Data)
	case ws.TypePlayerState:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventPosition, msg.Data)
	case ws.TypePlayerShoot:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventShoot, msg.Data)
	case ws.TypePlayerHit:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventHit, msg.Data)
	case ws.TypeSendHazard:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventHazard, msg.Data)
	case ws.TypePlayerDied:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventDied, msg.Data)
	case ws.TypePlayerRespawn:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventRespawn, msg.Data)
	case ws.TypeSpawnEnemy:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventEnemySpawn, msg.Data)
	case ws.TypeSpawnBoss:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventBossSpawn, msg.Data)
	case ws.TypeBossDamage:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventBossDamage, msg.Data)
	case ws.TypeBossDefeated:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventBossDefeated, msg.Data)
	case ws.TypeRoundEnd:
		r.gameplay.Publish(ctx, cm.Client, player, model.EventRoundEnd, msg.Data)
	case ws.TypeChat:
		r.gameplay.Chat(ctx, cm.Client, player, msg.Data)
	case ws.TypeHeartbeat:
		// Touch above is the whole point; nothing to reply.
	default:
		r.logger.Debug("unknown message type",
			slog.String("conn", cm.Client.ID),
			slog.String("type", msg.Type))
		cm.Client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Unknown message type"))
	}
}

// HandleDisconnect tears down everything hanging off a dropped
// connection: its binding, queue ticket, and room membership.
func (r *Router) HandleDisconnect(client *ws.Client) {
	r.monitor.HandleDisconnect(context.Background(), client.ID)
}

// handleHello binds the connection to a player identity. A client with
// no identity yet is minted one; a returning client presents its own.
func (r *Router) handleHello(client *ws.Client, data json.RawMessage) {
	var payload helloPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			client.SendMessage(ws.NewErrorMessage(CodeInvalidRequest, "Malformed hello"))
			return
		}
	}

	playerID := payload.PlayerID
	if playerID == "" {
		playerID = model.PlayerID(uuid.NewString())
	}
	name := payload.PlayerName
	if name == "" {
		name = "Pilot"
	}

	if err := r.sessions.Register(client.ID, playerID, name); err != nil {
		client.SendMessage(errorMessage(err))
		return
	}

	reply, err := ws.NewMessage(ws.TypeConnected, connectedPayload{
		PlayerID:   playerID,
		PlayerName: name,
	})
	if err != nil {
		client.SendMessage(ws.NewErrorMessage(CodeInternalError, "Internal server error"))
		return
	}
	client.SendMessage(reply)
}
