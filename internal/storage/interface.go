package storage

import (
	"context"

	"github.com/legionlabs/spacefight-server/internal/model"
)

// Storage defines the interface for room and matchmaking state.
//
// Implementations only persist and fetch; all serialization of
// concurrent mutations is the caller's responsibility (the room
// manager and matchmaking queue are the sole mutators).
type Storage interface {
	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error
	RoomExists(ctx context.Context, code model.RoomCode) (bool, error)

	// Player -> room index operations
	SetPlayerRoom(ctx context.Context, id model.PlayerID, code model.RoomCode) error
	GetPlayerRoom(ctx context.Context, id model.PlayerID) (model.RoomCode, error)
	ClearPlayerRoom(ctx context.Context, id model.PlayerID) error

	// Matchmaking ticket operations. Tickets for a mode are kept in
	// enqueue order (FIFO).
	SaveTicket(ctx context.Context, ticket *model.Ticket) error
	GetTicket(ctx context.Context, id model.TicketID) (*model.Ticket, error)
	GetTicketByPlayer(ctx context.Context, id model.PlayerID) (*model.Ticket, error)
	DeleteTicket(ctx context.Context, id model.TicketID) error
	ListTicketsByMode(ctx context.Context, mode model.GameMode) ([]*model.Ticket, error)
}
