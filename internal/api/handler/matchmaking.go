package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/legionlabs/spacefight-server/internal/api/apierr"
	"github.com/legionlabs/spacefight-server/internal/api/response"
	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/services/matchmaking"
)

// MatchmakingHandler exposes queue status for a player.
type MatchmakingHandler struct {
	queue *matchmaking.Queue
}

// NewMatchmakingHandler creates a matchmaking handler
func NewMatchmakingHandler(queue *matchmaking.Queue) *MatchmakingHandler {
	return &MatchmakingHandler{queue: queue}
}

// QueueStatus is the response for a matchmaking status query.
type QueueStatus struct {
	Queued     bool           `json:"queued"`
	TicketID   model.TicketID `json:"ticket_id,omitempty"`
	Mode       model.GameMode `json:"mode,omitempty"`
	EnqueuedAt *time.Time     `json:"enqueued_at,omitempty"`
}

// Status handles GET /matchmaking/status?player_id=...
func (h *MatchmakingHandler) Status(w http.ResponseWriter, r *http.Request) {
	playerID := model.PlayerID(r.URL.Query().Get("player_id"))
	if playerID == "" {
		apierr.WriteError(w, apierr.NewInvalidRequestError("Missing player_id"))
		return
	}

	ticket, err := h.queue.TicketFor(r.Context(), playerID)
	if err != nil {
		if errors.Is(err, model.ErrTicketNotFound) {
			response.JSON(w, http.StatusOK, QueueStatus{Queued: false})
			return
		}
		apierr.WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, QueueStatus{
		Queued:     true,
		TicketID:   ticket.ID,
		Mode:       ticket.Mode,
		EnqueuedAt: &ticket.EnqueuedAt,
	})
}
