package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/matchmaking"
	"github.com/legionlabs/spacefight-server/internal/services/room"
	"github.com/legionlabs/spacefight-server/internal/services/session"
)

// Config holds liveness settings
type Config struct {
	// Timeout is how long a binding may go without any inbound message
	// (heartbeats included) before it is considered dead.
	Timeout time.Duration
	// SweepInterval is how often stale bindings are collected.
	SweepInterval time.Duration
}

// DefaultConfig returns sensible defaults for liveness configuration
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		SweepInterval: 5 * time.Second,
	}
}

// Monitor detects crashed or silently-closed clients. It is the sole
// recovery path for connections whose transport-level close was never
// delivered: a periodic sweep evicts bindings whose last-seen exceeds
// the timeout and drives unbind, ticket cancellation, and room leave
// through the owning components' APIs, never mutating their state
// directly.
type Monitor struct {
	sessions *session.Registry
	rooms    *room.Manager
	queue    *matchmaking.Queue
	cfg      Config
	logger   *slog.Logger

	// OnEvict is called with the connection id after a stale binding is
	// removed; the transport layer uses it to close the socket.
	OnEvict func(connID string)

	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a presence monitor.
func NewMonitor(
	sessions *session.Registry,
	rooms *room.Manager,
	queue *matchmaking.Queue,
	cfg Config,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		sessions: sessions,
		rooms:    rooms,
		queue:    queue,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "presence")),
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (m *Monitor) Start() {
	m.ticker = time.NewTicker(m.cfg.SweepInterval)
	go func() {
		for {
			select {
			case <-m.ticker.C:
				m.SweepOnce(context.Background())
			case <-m.stopChan:
				m.ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the sweep loop.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

// SweepOnce evicts every binding whose last-seen exceeds the timeout.
func (m *Monitor) SweepOnce(ctx context.Context) {
	for _, binding := range m.sessions.Stale(m.cfg.Timeout) {
		m.logger.Info("evicting stale binding",
			slog.String("conn", binding.ConnID),
			slog.String("player", string(binding.Player)))
		m.evict(ctx, binding.ConnID, model.LeaveTimeout)
	}
}

// HandleDisconnect performs the same cleanup as a sweep eviction for a
// connection whose transport close did get delivered.
func (m *Monitor) HandleDisconnect(ctx context.Context, connID string) {
	m.evict(ctx, connID, model.LeaveExplicit)
}

func (m *Monitor) evict(ctx context.Context, connID string, reason model.LeaveReason) {
	player, ok := m.sessions.Unbind(connID)
	if !ok {
		return
	}

	if err := m.queue.Dequeue(ctx, player); err != nil {
		m.logger.Error("could not cancel ticket for evicted player",
			slog.String("player", string(player)),
			slog.String("error", err.Error()))
	}

	code, err := m.rooms.RoomFor(ctx, player)
	if err != nil {
		m.logger.Error("could not resolve room for evicted player",
			slog.String("player", string(player)),
			slog.String("error", err.Error()))
	} else if code != "" {
		if err := m.rooms.LeaveRoom(ctx, code, player, reason); err != nil {
			m.logger.Error("could not remove evicted player from room",
				slog.String("player", string(player)),
				slog.String("room", string(code)),
				slog.String("error", err.Error()))
		}
	}

	if m.OnEvict != nil {
		m.OnEvict(connID)
	}
}
