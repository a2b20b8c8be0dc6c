package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/legionlabs/spacefight-server/internal/dependencies/clock"
	"github.com/legionlabs/spacefight-server/internal/dependencies/random"
	"github.com/legionlabs/spacefight-server/internal/handler"
	"github.com/legionlabs/spacefight-server/internal/history"
	"github.com/legionlabs/spacefight-server/internal/services/matchmaking"
	"github.com/legionlabs/spacefight-server/internal/services/presence"
	"github.com/legionlabs/spacefight-server/internal/services/relay"
	"github.com/legionlabs/spacefight-server/internal/services/room"
	"github.com/legionlabs/spacefight-server/internal/services/session"
	"github.com/legionlabs/spacefight-server/internal/storage"
	"github.com/legionlabs/spacefight-server/internal/storage/memory"
	redisstorage "github.com/legionlabs/spacefight-server/internal/storage/redis"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Transport
	Hub      *ws.Hub
	Notifier *handler.Notifier
	Router   *handler.Router

	// Services
	Sessions    *session.Registry
	RoomManager *room.Manager
	Queue       *matchmaking.Queue
	Relay       *relay.Relay
	Monitor     *presence.Monitor

	// Recorder is nil when no database is configured.
	Recorder *history.Recorder
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// DatabaseURL is the PostgreSQL connection string for match history
	// (optional; recording is disabled when empty)
	DatabaseURL string
	// MatchmakingConfig holds queue tuning (zero value takes defaults)
	MatchmakingConfig matchmaking.Config
	// PresenceConfig holds liveness tuning (zero value takes defaults)
	PresenceConfig presence.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	var recorder *history.Recorder
	if cfg.DatabaseURL != "" {
		var err error
		recorder, err = history.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
	}

	mmCfg := cfg.MatchmakingConfig
	mmDefaults := matchmaking.DefaultConfig()
	if mmCfg.TicketTimeout == 0 {
		mmCfg.TicketTimeout = mmDefaults.TicketTimeout
	}
	if mmCfg.SweepInterval == 0 {
		mmCfg.SweepInterval = mmDefaults.SweepInterval
	}

	presenceCfg := cfg.PresenceConfig
	presenceDefaults := presence.DefaultConfig()
	if presenceCfg.Timeout == 0 {
		presenceCfg.Timeout = presenceDefaults.Timeout
	}
	if presenceCfg.SweepInterval == 0 {
		presenceCfg.SweepInterval = presenceDefaults.SweepInterval
	}

	app := newWithDependencies(store, clock.New(), random.New(), recorder, mmCfg, presenceCfg, logger)
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	recorder *history.Recorder,
	mmCfg matchmaking.Config,
	presenceCfg presence.Config,
	logger *slog.Logger,
) *App {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	hub := ws.NewHub()
	sessions := session.NewRegistry(clk, logger)
	notifier := handler.NewNotifier(sessions, hub, logger)

	// The recorder interface is satisfied by a nil-able concrete type;
	// pass an untyped nil so the manager's nil check works.
	var rec room.Recorder
	if recorder != nil {
		rec = recorder
	}

	roomManager := room.NewManager(store, clk, rnd, notifier, rec, logger)
	queue := matchmaking.NewQueue(store, roomManager, clk, notifier, mmCfg, logger)
	eventRelay := relay.New(store, notifier, logger)
	monitor := presence.NewMonitor(sessions, roomManager, queue, presenceCfg, logger)
	monitor.OnEvict = hub.CloseClient

	lobbyHandler := handler.NewLobbyHandler(sessions, roomManager, queue, logger)
	gameplayHandler := handler.NewGameplayHandler(eventRelay, logger)
	router := handler.NewRouter(sessions, monitor, lobbyHandler, gameplayHandler, logger)

	hub.OnMessage = router.HandleMessage
	hub.OnDisconnect = router.HandleDisconnect

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		Hub:         hub,
		Notifier:    notifier,
		Router:      router,
		Sessions:    sessions,
		RoomManager: roomManager,
		Queue:       queue,
		Relay:       eventRelay,
		Monitor:     monitor,
		Recorder:    recorder,
	}
}

// Start launches the background loops: the hub dispatch, the
// matchmaking expiry sweep, and the presence sweep.
func (a *App) Start() {
	go a.Hub.Run()
	a.Queue.Start()
	a.Monitor.Start()
}

// Stop halts the background loops and releases external resources.
func (a *App) Stop() {
	a.Monitor.Stop()
	a.Queue.Stop()
	if a.Recorder != nil {
		a.Recorder.Close()
	}
	if closer, ok := a.Storage.(io.Closer); ok {
		_ = closer.Close()
	}
}
