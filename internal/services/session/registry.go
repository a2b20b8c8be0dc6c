package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/legionlabs/spacefight-server/internal/dependencies/clock"
	"github.com/legionlabs/spacefight-server/internal/model"
)

// Binding is the transient association between a live connection and a
// player identity. It is never persisted; a reconnecting client simply
// registers again.
type Binding struct {
	ConnID   string
	Player   model.PlayerID
	Name     string
	LastSeen time.Time
}

// Registry owns the connection <-> identity mapping. Other components
// only read from it to resolve delivery targets; eviction of stale
// bindings is driven by the presence monitor.
type Registry struct {
	mu        sync.RWMutex
	byConn    map[string]*Binding
	byPlayer  map[model.PlayerID]string
	clock     clock.Clock
	logger    *slog.Logger
}

// NewRegistry creates a session registry.
func NewRegistry(clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		byConn:   make(map[string]*Binding),
		byPlayer: make(map[model.PlayerID]string),
		clock:    clk,
		logger:   logger.With(slog.String("component", "session")),
	}
}

// Register binds a live connection to a player identity. It fails with
// ErrDuplicateBinding if the identity is already bound to a different
// live connection; a stale binding must be evicted first (by the
// presence monitor or a transport disconnect).
func (r *Registry) Register(connID string, player model.PlayerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byPlayer[player]; ok && existing != connID {
		return model.ErrDuplicateBinding
	}

	r.byConn[connID] = &Binding{
		ConnID:   connID,
		Player:   player,
		Name:     name,
		LastSeen: r.clock.Now(),
	}
	r.byPlayer[player] = connID

	r.logger.Info("connection bound",
		slog.String("conn", connID),
		slog.String("player", string(player)))
	return nil
}

// Resolve returns the identity bound to a connection.
func (r *Registry) Resolve(connID string) (model.PlayerID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byConn[connID]
	if !ok {
		return "", model.ErrNotBound
	}
	return b.Player, nil
}

// Get returns the full binding for a connection.
func (r *Registry) Get(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.byConn[connID]
	if !ok {
		return Binding{}, false
	}
	return *b, true
}

// ConnFor returns the live connection id for a player, if any.
func (r *Registry) ConnFor(player model.PlayerID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byPlayer[player]
	return connID, ok
}

// Unbind removes a connection's binding. It is idempotent: unbinding an
// unknown connection is a no-op. It returns the identity that was bound
// so the caller can drive room cleanup.
func (r *Registry) Unbind(connID string) (model.PlayerID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if r.byPlayer[b.Player] == connID {
		delete(r.byPlayer, b.Player)
	}

	r.logger.Info("connection unbound",
		slog.String("conn", connID),
		slog.String("player", string(b.Player)))
	return b.Player, true
}

// Touch refreshes a connection's last-seen timestamp. Any inbound
// message counts, including heartbeats.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byConn[connID]; ok {
		b.LastSeen = r.clock.Now()
	}
}

// Stale returns the bindings whose last-seen exceeds the timeout.
// The registry is not mutated; callers evict through Unbind so the
// side effects stay on one path.
func (r *Registry) Stale(timeout time.Duration) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []Binding
	for _, b := range r.byConn {
		if r.clock.Since(b.LastSeen) > timeout {
			stale = append(stale, *b)
		}
	}
	return stale
}

// Count returns the number of live bindings.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
