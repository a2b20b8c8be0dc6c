package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legionlabs/spacefight-server/internal/api/apierr"
	"github.com/legionlabs/spacefight-server/internal/api/response"
	"github.com/legionlabs/spacefight-server/internal/handler"
	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/room"
)

// RoomHandler exposes read-only room inspection. Mutation only happens
// over the WebSocket, where the caller has a bound identity.
type RoomHandler struct {
	rooms *room.Manager
}

// NewRoomHandler creates a room handler
func NewRoomHandler(rooms *room.Manager) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// Get handles GET /rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])
	if code == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Missing room code"))
		return
	}

	found, err := h.rooms.GetRoom(r.Context(), code)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, handler.NewRoomView(found))
}
