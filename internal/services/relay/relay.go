package relay

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/storage"
)

// Sender delivers a relayed event to a player's live connection.
// Delivery is best-effort, at-most-once: a false return means the event
// was dropped (dead connection or full buffer) and is never retried.
type Sender interface {
	Send(to model.PlayerID, event model.RelayedEvent) bool
}

// Relay fans gameplay events out from their origin to the other
// occupant of the same active room, and only that room. It never echoes
// an event back to its originator and never buffers for late joiners:
// the relay is a pure forward, not a log.
//
// Per-origin FIFO ordering holds because each connection's events are
// published from its single read goroutine and each target drains a
// single ordered send buffer.
type Relay struct {
	storage storage.Storage
	sender  Sender
	logger  *slog.Logger
}

// New creates a relay.
func New(store storage.Storage, sender Sender, logger *slog.Logger) *Relay {
	return &Relay{
		storage: store,
		sender:  sender,
		logger:  logger.With(slog.String("component", "relay")),
	}
}

// Publish forwards an event from origin to the other occupant(s) of the
// room. It fails with ErrNotInRoom if the origin does not hold a slot
// in an active room with that code, and ErrUnknownEventKind for kinds
// outside the closed set; bad events are rejected to the sender only,
// never surfaced to the peer.
func (r *Relay) Publish(ctx context.Context, code model.RoomCode, origin model.PlayerID, kind model.EventKind, payload json.RawMessage) error {
	if !model.ValidEventKind(kind) {
		return model.ErrUnknownEventKind
	}

	room, err := r.storage.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != model.RoomActive || room.SlotOf(origin) == nil {
		return model.ErrNotInRoom
	}

	event := model.RelayedEvent{Kind: kind, Origin: origin, Payload: payload}

	for _, slot := range room.Slots {
		if slot.Player == origin {
			continue
		}
		if !r.sender.Send(slot.Player, event) {
			// Dead peer or full buffer: discard rather than queue.
			r.logger.Debug("relayed event dropped",
				slog.String("room", string(code)),
				slog.String("kind", string(kind)),
				slog.String("to", string(slot.Player)))
		}
	}
	return nil
}
