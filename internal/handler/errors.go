package handler

import (
	"errors"

	"github.com/legionlabs/spacefight-server/internal/model"
	"github.com/legionlabs/spacefight-server/internal/ws"
)

// Wire error codes. None of these are fatal: a rejected request never
// affects other rooms or the peer.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeRoomNotFound     = "ROOM_NOT_FOUND"
	CodeRoomFull         = "ROOM_FULL"
	CodeRoomNotActive    = "ROOM_NOT_ACTIVE"
	CodeAlreadyInRoom    = "ALREADY_IN_ROOM"
	CodeNotInRoom        = "NOT_IN_ROOM"
	CodeAlreadyQueued    = "ALREADY_QUEUED"
	CodeDuplicateBinding = "DUPLICATE_BINDING"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeUnknownEvent     = "UNKNOWN_EVENT"
	CodeInternalError    = "INTERNAL_ERROR"
)

// errorMessage converts a model error into its wire rejection.
func errorMessage(err error) ws.Message {
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return ws.NewErrorMessage(CodeRoomNotFound, "Room not found")
	case errors.Is(err, model.ErrRoomFull):
		return ws.NewErrorMessage(CodeRoomFull, "Room is full")
	case errors.Is(err, model.ErrRoomNotActive):
		return ws.NewErrorMessage(CodeRoomNotActive, "Room is not active")
	case errors.Is(err, model.ErrAlreadyInRoom):
		return ws.NewErrorMessage(CodeAlreadyInRoom, "Already in a room")
	case errors.Is(err, model.ErrNotInRoom):
		return ws.NewErrorMessage(CodeNotInRoom, "Not in that room")
	case errors.Is(err, model.ErrAlreadyQueued):
		return ws.NewErrorMessage(CodeAlreadyQueued, "Already in the matchmaking queue")
	case errors.Is(err, model.ErrDuplicateBinding):
		return ws.NewErrorMessage(CodeDuplicateBinding, "Identity already connected")
	case errors.Is(err, model.ErrNotBound):
		return ws.NewErrorMessage(CodeUnauthorized, "Say hello first")
	case errors.Is(err, model.ErrUnknownEventKind):
		return ws.NewErrorMessage(CodeUnknownEvent, "Unrecognized event kind")
	case errors.Is(err, model.ErrCodeSpaceExhausted):
		return ws.NewErrorMessage(CodeInternalError, "Could not allocate a room code")
	default:
		return ws.NewErrorMessage(CodeInternalError, "Internal server error")
	}
}
