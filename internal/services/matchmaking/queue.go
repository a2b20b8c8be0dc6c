package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/legionlabs/spacefight-server/internal/dependencies/clock"
	"github.com/legionlabs/spacefight-server/internal/locks"
	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/room"
	"github.com/legionlabs/spacefight-server/internal/storage"
)

// Events receives matchmaking notifications. Same delivery contract as
// room.Events: guaranteed-enqueued, never silently dropped.
type Events interface {
	MatchFound(to model.PlayerID, matched *model.Room)
	MatchTimeout(to model.PlayerID)
}

// Config holds matchmaking behavior settings
type Config struct {
	// TicketTimeout is how long a ticket may wait before the player is
	// dequeued and told to retry.
	TicketTimeout time.Duration
	// SweepInterval is how often expired tickets are collected.
	SweepInterval time.Duration
}

// DefaultConfig returns sensible defaults for matchmaking configuration
func DefaultConfig() Config {
	return Config{
		TicketTimeout: 60 * time.Second,
		SweepInterval: 5 * time.Second,
	}
}

// Queue pairs waiting players into rooms, FIFO per mode. All ticket
// mutations for a mode are serialized under that mode's lock, so no
// ticket is ever paired twice or silently dropped. A per-player lock
// on top of that keeps the one-outstanding-ticket invariant across
// modes: without it, concurrent enqueues for different modes would
// take different mode locks and both pass the existence check.
type Queue struct {
	storage storage.Storage
	rooms   *room.Manager
	clock   clock.Clock
	events  Events
	cfg     Config
	logger  *slog.Logger

	playerLocks *locks.Keyed
	modeLocks   map[model.GameMode]*sync.Mutex

	sweepTicker *time.Ticker
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewQueue creates a matchmaking queue.
func NewQueue(
	store storage.Storage,
	rooms *room.Manager,
	clk clock.Clock,
	events Events,
	cfg Config,
	logger *slog.Logger,
) *Queue {
	return &Queue{
		storage:     store,
		rooms:       rooms,
		clock:       clk,
		events:      events,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "matchmaking")),
		playerLocks: locks.NewKeyed(),
		modeLocks: map[model.GameMode]*sync.Mutex{
			model.ModeCoop:   {},
			model.ModeVersus: {},
		},
		stopChan: make(chan struct{}),
	}
}

// Enqueue files a matchmaking ticket and immediately attempts to pair
// it with the oldest waiting ticket of the same mode. When a partner is
// found both players are notified with the resulting room, which is
// already active without either calling join_room.
func (q *Queue) Enqueue(ctx context.Context, player model.PlayerID, name string, mode model.GameMode) (model.TicketID, error) {
	unlockPlayer := q.playerLocks.Lock(string(player))
	defer unlockPlayer()

	lock := q.modeLocks[mode]
	lock.Lock()
	defer lock.Unlock()

	if _, err := q.storage.GetTicketByPlayer(ctx, player); err == nil {
		return "", model.ErrAlreadyQueued
	} else if !errors.Is(err, model.ErrTicketNotFound) {
		return "", err
	}

	ticket := &model.Ticket{
		ID:         model.TicketID(uuid.NewString()),
		Player:     player,
		PlayerName: name,
		Mode:       mode,
		EnqueuedAt: q.clock.Now(),
	}
	if err := q.storage.SaveTicket(ctx, ticket); err != nil {
		return "", err
	}

	q.logger.Info("ticket enqueued",
		slog.String("ticket", string(ticket.ID)),
		slog.String("player", string(player)),
		slog.String("mode", string(mode)))

	if err := q.pairLocked(ctx, mode); err != nil {
		q.logger.Error("pairing failed", slog.String("error", err.Error()))
	}
	return ticket.ID, nil
}

// Dequeue cancels a player's outstanding ticket. Idempotent. The
// lookup runs under the player lock so a concurrent enqueue cannot
// swap the ticket between the lookup and the delete.
func (q *Queue) Dequeue(ctx context.Context, player model.PlayerID) error {
	unlockPlayer := q.playerLocks.Lock(string(player))
	defer unlockPlayer()

	ticket, err := q.storage.GetTicketByPlayer(ctx, player)
	if err != nil {
		if errors.Is(err, model.ErrTicketNotFound) {
			return nil
		}
		return err
	}

	lock := q.modeLocks[ticket.Mode]
	lock.Lock()
	defer lock.Unlock()

	return q.storage.DeleteTicket(ctx, ticket.ID)
}

// TicketFor returns a player's outstanding ticket, if any.
func (q *Queue) TicketFor(ctx context.Context, player model.PlayerID) (*model.Ticket, error) {
	return q.storage.GetTicketByPlayer(ctx, player)
}

// pairLocked pops the two oldest tickets of a mode and converts them
// into an active room. Caller must hold the mode lock.
func (q *Queue) pairLocked(ctx context.Context, mode model.GameMode) error {
	tickets, err := q.storage.ListTicketsByMode(ctx, mode)
	if err != nil {
		return err
	}
	if len(tickets) < 2 {
		return nil
	}

	host, joiner := tickets[0], tickets[1]

	// Tickets come off the queue before the room exists so a concurrent
	// sweep cannot expire a ticket that is being paired.
	if err := q.storage.DeleteTicket(ctx, host.ID); err != nil {
		return err
	}
	if err := q.storage.DeleteTicket(ctx, joiner.ID); err != nil {
		return err
	}

	matched, err := q.rooms.CreateRoom(ctx, host.Player, host.PlayerName, mode, "")
	if err != nil {
		q.requeue(ctx, host, joiner)
		return fmt.Errorf("could not create room for pair: %w", err)
	}
	matched, _, err = q.rooms.JoinRoom(ctx, matched.Code, joiner.Player, joiner.PlayerName)
	if err != nil {
		_ = q.rooms.LeaveRoom(ctx, matched.Code, host.Player, model.LeaveExplicit)
		q.requeue(ctx, host, joiner)
		return fmt.Errorf("could not join pair into room: %w", err)
	}

	q.events.MatchFound(host.Player, matched)
	q.events.MatchFound(joiner.Player, matched)

	q.logger.Info("players paired",
		slog.String("room", string(matched.Code)),
		slog.String("host", string(host.Player)),
		slog.String("joiner", string(joiner.Player)))
	return nil
}

// requeue restores tickets after a failed pairing so neither request is
// silently dropped.
func (q *Queue) requeue(ctx context.Context, tickets ...*model.Ticket) {
	for _, t := range tickets {
		if err := q.storage.SaveTicket(ctx, t); err != nil {
			q.logger.Error("could not restore ticket after failed pairing",
				slog.String("ticket", string(t.ID)),
				slog.String("error", err.Error()))
		}
	}
}

// Start launches the expiry sweep loop.
func (q *Queue) Start() {
	q.sweepTicker = time.NewTicker(q.cfg.SweepInterval)
	go func() {
		for {
			select {
			case <-q.sweepTicker.C:
				if err := q.SweepOnce(context.Background()); err != nil {
					q.logger.Error("ticket sweep failed", slog.String("error", err.Error()))
				}
			case <-q.stopChan:
				q.sweepTicker.Stop()
				return
			}
		}
	}()
}

// Stop halts the expiry sweep loop.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stopChan) })
}

// SweepOnce dequeues tickets older than the configured timeout and
// notifies the waiting players rather than leaving them hanging.
func (q *Queue) SweepOnce(ctx context.Context) error {
	for mode, lock := range q.modeLocks {
		lock.Lock()
		tickets, err := q.storage.ListTicketsByMode(ctx, mode)
		if err != nil {
			lock.Unlock()
			return err
		}

		var expired []*model.Ticket
		for _, t := range tickets {
			if q.clock.Since(t.EnqueuedAt) > q.cfg.TicketTimeout {
				if err := q.storage.DeleteTicket(ctx, t.ID); err != nil {
					lock.Unlock()
					return err
				}
				expired = append(expired, t)
			}
		}
		lock.Unlock()

		for _, t := range expired {
			q.events.MatchTimeout(t.Player)
			q.logger.Info("ticket expired",
				slog.String("ticket", string(t.ID)),
				slog.String("player", string(t.Player)))
		}
	}
	return nil
}
