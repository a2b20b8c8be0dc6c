package handler

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/matchmaking"
	"github.com/legionlabs/spacefight-server/internal/services/relay"
	"github.com/legionlabs/spacefight-server/internal/services/room"
	"github.com/legionlabs/spacefight-server/internal/services/session"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

var (
	_ room.Events        = (*Notifier)(nil)
	_ matchmaking.Events = (*Notifier)(nil)
	_ relay.Sender       = (*Notifier)(nil)
)

const (
	// notifyAttempts bounds the redelivery loop for membership
	// notifications. The target's send buffer holds 256 messages, so a
	// full buffer clears within a few write deadlines or the connection
	// is dead and the presence monitor will evict it anyway.
	notifyAttempts = 5
	notifyBackoff  = 50 * time.Millisecond
)

// Notifier resolves player identities to live connections and pushes
// server-initiated messages to them. Membership and match notifications
// are retried until enqueued; relayed gameplay events are fire-and-forget.
type Notifier struct {
	sessions *session.Registry
	hub      *ws.Hub
	logger   *slog.Logger
}

// NewNotifier creates a notifier over the given registry and hub.
func NewNotifier(sessions *session.Registry, hub *ws.Hub, logger *slog.Logger) *Notifier {
	return &Notifier{
		sessions: sessions,
		hub:      hub,
		logger:   logger.With(slog.String("component", "notifier")),
	}
}

// notify enqueues a message for a player, retrying with backoff on a
// full send buffer. The retry runs off the caller's goroutine so a slow
// target never stalls the service that fired the notification. The
// target is re-resolved each attempt because the player may have
// reconnected on a new connection in the meantime.
func (n *Notifier) notify(to model.PlayerID, msg ws.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("encoding notification",
			slog.String("type", msg.Type), slog.Any("error", err))
		return
	}
	if n.tryDeliver(to, data) {
		return
	}
	go func() {
		backoff := notifyBackoff
		for attempt := 1; attempt < notifyAttempts; attempt++ {
			time.Sleep(backoff)
			if n.tryDeliver(to, data) {
				return
			}
			backoff *= 2
		}
		n.logger.Error("notification undeliverable",
			slog.String("player", string(to)),
			slog.String("type", msg.Type))
	}()
}

func (n *Notifier) tryDeliver(to model.PlayerID, data []byte) bool {
	connID, ok := n.sessions.ConnFor(to)
	if !ok {
		// No live binding: the player is gone and their room state is
		// being torn down on the presence path. Nothing to deliver to.
		return true
	}
	client := n.hub.ByID(connID)
	if client == nil {
		return true
	}
	return client.TrySend(data)
}

// PeerJoined tells the host their room just filled.
func (n *Notifier) PeerJoined(to model.PlayerID, room *model.Room, joined model.Slot) {
	msg, err := ws.NewMessage(ws.TypePeerJoined, peerJoinedPayload{
		RoomCode: room.Code,
		Room:     roomView(room),
		Peer:     slotView(joined),
	})
	if err != nil {
		n.logger.Error("encoding peer_joined", slog.Any("error", err))
		return
	}
	n.notify(to, msg)
}

// PeerLeft tells the remaining occupant their peer is gone.
func (n *Notifier) PeerLeft(to model.PlayerID, code model.RoomCode, reason model.LeaveReason) {
	msg, err := ws.NewMessage(ws.TypePeerLeft, peerLeftPayload{
		RoomCode: code,
		Reason:   reason,
	})
	if err != nil {
		n.logger.Error("encoding peer_left", slog.Any("error", err))
		return
	}
	n.notify(to, msg)
}

// PeerReady tells the peer about a ready-state change.
func (n *Notifier) PeerReady(to model.PlayerID, code model.RoomCode, player model.PlayerID, ready bool) {
	msg, err := ws.NewMessage(ws.TypePeerReady, peerReadyPayload{
		RoomCode: code,
		PlayerID: player,
		Ready:    ready,
	})
	if err != nil {
		n.logger.Error("encoding peer_ready", slog.Any("error", err))
		return
	}
	n.notify(to, msg)
}

// GameEnded delivers the final match record to an occupant.
func (n *Notifier) GameEnded(to model.PlayerID, record model.MatchRecord) {
	msg, err := ws.NewMessage(ws.TypeGameOver, gameOverPayload{
		RoomCode: record.RoomCode,
		Outcome:  record.Outcome,
		Winner:   record.Winner,
		Scores:   record.Scores,
	})
	if err != nil {
		n.logger.Error("encoding game_over", slog.Any("error", err))
		return
	}
	n.notify(to, msg)
}

// MatchFound tells a queued player they have been paired into a room.
func (n *Notifier) MatchFound(to model.PlayerID, room *model.Room) {
	msg, err := ws.NewMessage(ws.TypeMatchFound, matchFoundPayload{
		RoomCode: room.Code,
		Room:     roomView(room),
	})
	if err != nil {
		n.logger.Error("encoding match_found", slog.Any("error", err))
		return
	}
	n.notify(to, msg)
}

// MatchTimeout tells a queued player their ticket expired unmatched.
func (n *Notifier) MatchTimeout(to model.PlayerID) {
	n.notify(to, ws.Message{Type: ws.TypeMatchTimeout})
}

// Send delivers a relayed gameplay event, at most once. Gameplay
// traffic is high-rate and superseded by the next event, so a full
// buffer drops rather than retries.
func (n *Notifier) Send(to model.PlayerID, event model.RelayedEvent) bool {
	msg, err := ws.NewMessage(ws.TypeOpponentUpdate, event)
	if err != nil {
		n.logger.Error("encoding opponent_update", slog.Any("error", err))
		return false
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	connID, ok := n.sessions.ConnFor(to)
	if !ok {
		return false
	}
	client := n.hub.ByID(connID)
	if client == nil {
		return false
	}
	return client.TrySend(data)
}
