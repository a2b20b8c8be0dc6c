package memory

import (
	"context"
	"sync"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	rooms       map[model.RoomCode]*model.Room
	playerRooms map[model.PlayerID]model.RoomCode
	tickets     map[model.TicketID]*model.Ticket
	ticketIndex map[model.PlayerID]model.TicketID
	queues      map[model.GameMode][]model.TicketID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		rooms:       make(map[model.RoomCode]*model.Room),
		playerRooms: make(map[model.PlayerID]model.RoomCode),
		tickets:     make(map[model.TicketID]*model.Ticket),
		ticketIndex: make(map[model.PlayerID]model.TicketID),
		queues:      make(map[model.GameMode][]model.TicketID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *room
	cp.Slots = append([]model.Slot(nil), room.Slots...)
	s.rooms[room.Code] = &cp
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	cp := *room
	cp.Slots = append([]model.Slot(nil), room.Slots...)
	return &cp, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
	return nil
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok, nil
}

// Player -> room index operations

func (s *Storage) SetPlayerRoom(ctx context.Context, id model.PlayerID, code model.RoomCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerRooms[id] = code
	return nil
}

func (s *Storage) GetPlayerRoom(ctx context.Context, id model.PlayerID) (model.RoomCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerRooms[id], nil
}

func (s *Storage) ClearPlayerRoom(ctx context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.playerRooms, id)
	return nil
}

// Matchmaking ticket operations

func (s *Storage) SaveTicket(ctx context.Context, ticket *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ticket
	if _, exists := s.tickets[ticket.ID]; !exists {
		s.queues[ticket.Mode] = append(s.queues[ticket.Mode], ticket.ID)
	}
	s.tickets[ticket.ID] = &cp
	s.ticketIndex[ticket.Player] = ticket.ID
	return nil
}

func (s *Storage) GetTicket(ctx context.Context, id model.TicketID) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, model.ErrTicketNotFound
	}
	cp := *ticket
	return &cp, nil
}

func (s *Storage) GetTicketByPlayer(ctx context.Context, id model.PlayerID) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticketID, ok := s.ticketIndex[id]
	if !ok {
		return nil, model.ErrTicketNotFound
	}
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, model.ErrTicketNotFound
	}
	cp := *ticket
	return &cp, nil
}

func (s *Storage) DeleteTicket(ctx context.Context, id model.TicketID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil
	}
	delete(s.tickets, id)
	delete(s.ticketIndex, ticket.Player)
	queue := s.queues[ticket.Mode]
	for i, tid := range queue {
		if tid == id {
			s.queues[ticket.Mode] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Storage) ListTicketsByMode(ctx context.Context, mode model.GameMode) ([]*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	queue := s.queues[mode]
	tickets := make([]*model.Ticket, 0, len(queue))
	for _, id := range queue {
		if ticket, ok := s.tickets[id]; ok {
			cp := *ticket
			tickets = append(tickets, &cp)
		}
	}
	return tickets, nil
}
