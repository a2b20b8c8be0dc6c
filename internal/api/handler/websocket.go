package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/legionlabs/spacefight-server/internal/ws"
)

// WebSocketHandler upgrades HTTP requests onto the realtime transport.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a WebSocket upgrade handler. The browser
// client is served from its own origin, so cross-origin upgrades are
// allowed; identity is established by the hello exchange, not the
// origin header.
func NewWebSocketHandler(hub *ws.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With(slog.String("component", "websocket")),
	}
}

// Serve handles GET /ws
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := ws.NewClient(uuid.NewString(), h.hub, conn)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
