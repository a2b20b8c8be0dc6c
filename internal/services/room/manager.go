package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/legionlabs/spacefight-server/internal/dependencies/clock"
	"github.com/legionlabs/spacefight-server/internal/dependencies/random"
	"github.com/legionlabs/spacefight-server/internal/locks"
	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 6
	// CodeAlphabet is the characters used in room codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// codeAttempts bounds the collision retry loop. With a 32^6 code
	// space exhausting it means something is badly wrong.
	codeAttempts = 10
)

// Events receives room membership notifications. Implementations must
// guarantee enqueueing (retried if transiently undeliverable), never
// silently drop; the manager fires them after state is committed, so no
// lock is held across the dispatch.
type Events interface {
	PeerJoined(to model.PlayerID, room *model.Room, joined model.Slot)
	PeerLeft(to model.PlayerID, code model.RoomCode, reason model.LeaveReason)
	PeerReady(to model.PlayerID, code model.RoomCode, player model.PlayerID, ready bool)
	GameEnded(to model.PlayerID, record model.MatchRecord)
}

// Recorder persists match records durably. Implementations must not
// block; a nil Recorder disables recording.
type Recorder interface {
	Record(record model.MatchRecord)
}

// Manager owns room lifecycle. It is the sole mutator of room
// membership: handlers, matchmaking, and the presence monitor all go
// through it, and every transition on a room code is serialized by a
// per-code lock.
type Manager struct {
	storage  storage.Storage
	clock    clock.Clock
	random   random.Random
	events   Events
	recorder Recorder
	logger   *slog.Logger

	roomLocks   *locks.Keyed
	playerLocks *locks.Keyed
}

// NewManager creates a room manager.
func NewManager(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	events Events,
	recorder Recorder,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		storage:     store,
		clock:       clk,
		random:      rnd,
		events:      events,
		recorder:    recorder,
		logger:      logger.With(slog.String("component", "room")),
		roomLocks:   locks.NewKeyed(),
		playerLocks: locks.NewKeyed(),
	}
}

// CreateRoom creates a new room with the given player as host in slot 1.
// The room enters the waiting state until a second player joins.
func (m *Manager) CreateRoom(ctx context.Context, host model.PlayerID, hostName string, mode model.GameMode, difficulty string) (*model.Room, error) {
	unlockPlayer := m.playerLocks.Lock(string(host))
	defer unlockPlayer()

	if existing, err := m.storage.GetPlayerRoom(ctx, host); err != nil {
		return nil, err
	} else if existing != "" {
		return nil, model.ErrAlreadyInRoom
	}

	// Generate a code unique among rooms that have not ended. The
	// existence check runs under the per-code lock: a concurrent creator
	// drawing the same code serializes behind the save and retries,
	// rather than overwriting the first creator's room.
	var code model.RoomCode
	var unlockRoom func()
	for attempt := 0; ; attempt++ {
		if attempt >= codeAttempts {
			return nil, model.ErrCodeSpaceExhausted
		}
		candidate := model.RoomCode(m.random.String(CodeLength, CodeAlphabet))
		unlock := m.roomLocks.Lock(string(candidate))
		exists, err := m.storage.RoomExists(ctx, candidate)
		if err != nil {
			unlock()
			return nil, err
		}
		if !exists {
			code = candidate
			unlockRoom = unlock
			break
		}
		unlock()
	}
	defer unlockRoom()

	now := m.clock.Now()
	room := &model.Room{
		Code:       code,
		Mode:       mode,
		Difficulty: difficulty,
		Status:     model.RoomWaiting,
		Slots: []model.Slot{
			{Number: 1, Player: host, Name: hostName, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	if err := m.storage.SetPlayerRoom(ctx, host, code); err != nil {
		return nil, err
	}

	m.logger.Info("room created",
		slog.String("code", string(code)),
		slog.String("mode", string(mode)),
		slog.String("host", string(host)))
	return room, nil
}

// JoinRoom adds a player to a waiting room's second slot and activates
// the room. The joiner's success response and the host's peer_joined
// notification are both guaranteed to be delivered.
func (m *Manager) JoinRoom(ctx context.Context, code model.RoomCode, joiner model.PlayerID, joinerName string) (*model.Room, int, error) {
	unlockPlayer := m.playerLocks.Lock(string(joiner))
	defer unlockPlayer()
	unlockRoom := m.roomLocks.Lock(string(code))
	defer unlockRoom()

	if existing, err := m.storage.GetPlayerRoom(ctx, joiner); err != nil {
		return nil, 0, err
	} else if existing != "" {
		return nil, 0, model.ErrAlreadyInRoom
	}

	room, err := m.storage.GetRoom(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	switch room.Status {
	case model.RoomWaiting:
		// joinable
	case model.RoomActive:
		return nil, 0, model.ErrRoomFull
	default:
		// abandoned and ended rooms are gone as far as joiners care
		return nil, 0, model.ErrRoomNotFound
	}
	if room.IsFull() {
		return nil, 0, model.ErrRoomFull
	}

	slot := model.Slot{
		Number:   2,
		Player:   joiner,
		Name:     joinerName,
		JoinedAt: m.clock.Now(),
	}
	room.Slots = append(room.Slots, slot)
	room.Status = model.RoomActive
	room.UpdatedAt = m.clock.Now()

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return nil, 0, err
	}
	if err := m.storage.SetPlayerRoom(ctx, joiner, code); err != nil {
		return nil, 0, err
	}

	// State is committed; notify the host outside any storage write.
	if host := room.Host(); host != nil {
		m.events.PeerJoined(host.Player, room, slot)
	}

	m.logger.Info("room activated",
		slog.String("code", string(code)),
		slog.String("joiner", string(joiner)))
	return room, slot.Number, nil
}

// LeaveRoom removes a player's slot. An active room becomes abandoned
// and the remaining occupant is notified with the leave reason; when
// the last occupant leaves the room ends and its code is freed.
func (m *Manager) LeaveRoom(ctx context.Context, code model.RoomCode, player model.PlayerID, reason model.LeaveReason) error {
	unlockPlayer := m.playerLocks.Lock(string(player))
	defer unlockPlayer()
	unlockRoom := m.roomLocks.Lock(string(code))
	defer unlockRoom()

	room, err := m.storage.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if !room.RemoveSlot(player) {
		return model.ErrNotInRoom
	}
	if err := m.storage.ClearPlayerRoom(ctx, player); err != nil {
		return err
	}

	wasActive := room.Status == model.RoomActive
	now := m.clock.Now()

	if len(room.Slots) == 0 {
		// Last occupant gone: straight to ended, code freed. When both
		// occupants leave in the same window the second leave lands
		// here, so no abandoned notification is emitted. The match was
		// already recorded when the room became abandoned.
		if err := m.storage.DeleteRoom(ctx, code); err != nil {
			return err
		}
		m.logger.Info("room ended",
			slog.String("code", string(code)),
			slog.String("reason", string(reason)))
		return nil
	}

	if wasActive {
		room.Status = model.RoomAbandoned
		room.UpdatedAt = now
		if err := m.storage.SaveRoom(ctx, room); err != nil {
			return err
		}
		if m.recorder != nil {
			record := m.buildRecord(room, model.RoomAbandoned, now)
			record.Players = append(record.Players, player)
			m.recorder.Record(record)
		}
		remaining := room.Slots[0]
		m.events.PeerLeft(remaining.Player, code, reason)
		m.logger.Info("room abandoned",
			slog.String("code", string(code)),
			slog.String("left", string(player)),
			slog.String("reason", string(reason)))
		return nil
	}

	// Waiting room: a remaining occupant with the host gone should not
	// happen (host is alone in waiting rooms), but save what we have.
	room.UpdatedAt = now
	return m.storage.SaveRoom(ctx, room)
}

// SetReady toggles a slot's ready flag and notifies the peer.
func (m *Manager) SetReady(ctx context.Context, code model.RoomCode, player model.PlayerID, ready bool) (*model.Room, error) {
	unlockRoom := m.roomLocks.Lock(string(code))
	defer unlockRoom()

	room, err := m.storage.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	slot := room.SlotOf(player)
	if slot == nil {
		return nil, model.ErrNotInRoom
	}
	slot.Ready = ready
	room.UpdatedAt = m.clock.Now()

	if err := m.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	if peer := room.Peer(player); peer != nil {
		m.events.PeerReady(peer.Player, code, player, ready)
	}
	return room, nil
}

// EndGame marks an active room's match as finished, records the result
// durably, notifies both occupants, and frees the code.
func (m *Manager) EndGame(ctx context.Context, code model.RoomCode, player model.PlayerID, winner model.PlayerID, scores map[model.PlayerID]int) error {
	unlockRoom := m.roomLocks.Lock(string(code))
	defer unlockRoom()

	room, err := m.storage.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.SlotOf(player) == nil {
		return model.ErrNotInRoom
	}
	if room.Status != model.RoomActive {
		return model.ErrRoomNotActive
	}

	now := m.clock.Now()
	record := m.buildRecord(room, model.RoomEnded, now)
	record.Winner = winner
	record.Scores = scores

	for _, slot := range room.Slots {
		if err := m.storage.ClearPlayerRoom(ctx, slot.Player); err != nil {
			return err
		}
	}
	if err := m.storage.DeleteRoom(ctx, code); err != nil {
		return err
	}

	if m.recorder != nil {
		m.recorder.Record(record)
	}
	for _, slot := range room.Slots {
		m.events.GameEnded(slot.Player, record)
	}

	m.logger.Info("game ended",
		slog.String("code", string(code)),
		slog.String("winner", string(winner)))
	return nil
}

// GetRoom retrieves a room by code.
func (m *Manager) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return m.storage.GetRoom(ctx, code)
}

// RoomFor returns the code of the room the player currently occupies,
// or empty if none.
func (m *Manager) RoomFor(ctx context.Context, player model.PlayerID) (model.RoomCode, error) {
	return m.storage.GetPlayerRoom(ctx, player)
}

func (m *Manager) buildRecord(room *model.Room, outcome model.RoomStatus, endedAt time.Time) model.MatchRecord {
	players := make([]model.PlayerID, 0, len(room.Slots))
	for _, slot := range room.Slots {
		players = append(players, slot.Player)
	}
	return model.MatchRecord{
		RoomCode:   room.Code,
		Mode:       room.Mode,
		Difficulty: room.Difficulty,
		Outcome:    outcome,
		Players:    players,
		StartedAt:  room.CreatedAt,
		EndedAt:    endedAt,
	}
}
