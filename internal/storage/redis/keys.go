package redis

import (
	"fmt"

	"github.com/legionlabs/spacefight-server/internal/model"
)

// Key prefix for all multiplayer state
const keyPrefix = "spacefight"

// roomKey returns the Redis key for a Room
func roomKey(code model.RoomCode) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, code)
}

// playerRoomKey returns the Redis key for the player -> room code index
func playerRoomKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_room:%s", keyPrefix, id)
}

// ticketKey returns the Redis key for a matchmaking Ticket
func ticketKey(id model.TicketID) string {
	return fmt.Sprintf("%s:ticket:%s", keyPrefix, id)
}

// playerTicketKey returns the Redis key for the player -> ticket id index
func playerTicketKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_ticket:%s", keyPrefix, id)
}

// queueKey returns the Redis key for the FIFO LIST of ticket ids per mode
func queueKey(mode model.GameMode) string {
	return fmt.Sprintf("%s:queue:%s", keyPrefix, mode)
}
