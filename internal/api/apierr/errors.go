package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/legionlabs/spacefight-server/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeRoomNotFound   = "ROOM_NOT_FOUND"
	CodeRoomFull       = "ROOM_FULL"
	CodeRoomNotActive  = "ROOM_NOT_ACTIVE"
	CodeAlreadyInRoom  = "ALREADY_IN_ROOM"
	CodeNotInRoom      = "NOT_IN_ROOM"
	CodeAlreadyQueued  = "ALREADY_QUEUED"
	CodeTicketNotFound = "TICKET_NOT_FOUND"
	CodeInternalError  = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrRoomFull):
		return &httpError{http.StatusConflict, APIError{CodeRoomFull, "Room is full"}}
	case errors.Is(err, model.ErrRoomNotActive):
		return &httpError{http.StatusConflict, APIError{CodeRoomNotActive, "Room is not active"}}
	case errors.Is(err, model.ErrAlreadyInRoom):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInRoom, "Already in a room"}}
	case errors.Is(err, model.ErrNotInRoom):
		return &httpError{http.StatusNotFound, APIError{CodeNotInRoom, "Not in a room"}}
	case errors.Is(err, model.ErrAlreadyQueued):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyQueued, "Already queued"}}
	case errors.Is(err, model.ErrTicketNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeTicketNotFound, "No queue ticket"}}
	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}
