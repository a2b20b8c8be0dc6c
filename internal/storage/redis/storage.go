package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, roomKey(room.Code), data, s.cfg.RoomTTL).Err()
}

func (s *Storage) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, code model.RoomCode) error {
	return s.client.Del(ctx, roomKey(code)).Err()
}

func (s *Storage) RoomExists(ctx context.Context, code model.RoomCode) (bool, error) {
	exists, err := s.client.Exists(ctx, roomKey(code)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Player -> room index operations

func (s *Storage) SetPlayerRoom(ctx context.Context, id model.PlayerID, code model.RoomCode) error {
	return s.client.Set(ctx, playerRoomKey(id), string(code), s.cfg.RoomTTL).Err()
}

func (s *Storage) GetPlayerRoom(ctx context.Context, id model.PlayerID) (model.RoomCode, error) {
	code, err := s.client.Get(ctx, playerRoomKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return model.RoomCode(code), nil
}

func (s *Storage) ClearPlayerRoom(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerRoomKey(id)).Err()
}

// Matchmaking ticket operations
//
// Tickets live under their own key; FIFO ordering per mode is kept in a
// Redis LIST of ticket ids. Saving an existing ticket does not change
// its queue position.

func (s *Storage) SaveTicket(ctx context.Context, ticket *model.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}

	exists, err := s.client.Exists(ctx, ticketKey(ticket.ID)).Result()
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, ticketKey(ticket.ID), data, s.cfg.TicketTTL)
	pipe.Set(ctx, playerTicketKey(ticket.Player), string(ticket.ID), s.cfg.TicketTTL)
	if exists == 0 {
		pipe.RPush(ctx, queueKey(ticket.Mode), string(ticket.ID))
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetTicket(ctx context.Context, id model.TicketID) (*model.Ticket, error) {
	data, err := s.client.Get(ctx, ticketKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTicketNotFound
		}
		return nil, err
	}

	var ticket model.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *Storage) GetTicketByPlayer(ctx context.Context, id model.PlayerID) (*model.Ticket, error) {
	ticketID, err := s.client.Get(ctx, playerTicketKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTicketNotFound
		}
		return nil, err
	}
	return s.GetTicket(ctx, model.TicketID(ticketID))
}

func (s *Storage) DeleteTicket(ctx context.Context, id model.TicketID) error {
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTicketNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, ticketKey(id))
	pipe.Del(ctx, playerTicketKey(ticket.Player))
	pipe.LRem(ctx, queueKey(ticket.Mode), 1, string(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListTicketsByMode(ctx context.Context, mode model.GameMode) ([]*model.Ticket, error) {
	ids, err := s.client.LRange(ctx, queueKey(mode), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []*model.Ticket{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = ticketKey(model.TicketID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	tickets := make([]*model.Ticket, 0, len(values))
	for _, val := range values {
		if val == nil {
			continue // Ticket expired out from under the queue
		}
		var ticket model.Ticket
		if err := json.Unmarshal([]byte(val.(string)), &ticket); err != nil {
			continue // Skip invalid data
		}
		tickets = append(tickets, &ticket)
	}

	return tickets, nil
}
