package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legionlabs/spacefight-server/internal/api/handler"
	"github.com/legionlabs/spacefight-server/internal/middleware"
	"github.com/legionlabs/spacefight-server/internal/services/matchmaking"
	"github.com/legionlabs/spacefight-server/internal/services/room"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Hub         *ws.Hub
	RoomManager *room.Manager
	Queue       *matchmaking.Queue
}

// NewRouter creates the HTTP router: the WebSocket endpoint carrying
// all realtime traffic, plus a small read-only REST surface for
// inspection and health checks.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	wsHandler := handler.NewWebSocketHandler(cfg.Hub, cfg.Logger)
	roomHandler := handler.NewRoomHandler(cfg.RoomManager)
	matchHandler := handler.NewMatchmakingHandler(cfg.Queue)

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler)

	// The upgrade endpoint skips the logging middleware; its wrapped
	// writer does not implement http.Hijacker.
	r.HandleFunc("/ws", wsHandler.Serve).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/matchmaking/status", matchHandler.Status).Methods(http.MethodGet)

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
