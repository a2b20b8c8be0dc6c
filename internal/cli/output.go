package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Room:
		o.printRoom(v)
	case QueueStatus:
		o.printQueueStatus(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// RoomSlot response type (matches API)
type RoomSlot struct {
	Number   int    `json:"slot"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Ready    bool   `json:"ready"`
}

// Room response type
type Room struct {
	Code       string     `json:"room_code"`
	Mode       string     `json:"mode"`
	Difficulty string     `json:"difficulty,omitempty"`
	Status     string     `json:"status"`
	Slots      []RoomSlot `json:"slots"`
	CreatedAt  time.Time  `json:"created_at"`
}

// QueueStatus response type
type QueueStatus struct {
	Queued     bool       `json:"queued"`
	TicketID   string     `json:"ticket_id,omitempty"`
	Mode       string     `json:"mode,omitempty"`
	EnqueuedAt *time.Time `json:"enqueued_at,omitempty"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printRoom(r Room) {
	fmt.Printf("Room: %s\n", r.Code)
	fmt.Printf("Mode: %s\n", r.Mode)
	if r.Difficulty != "" {
		fmt.Printf("Difficulty: %s\n", r.Difficulty)
	}
	fmt.Printf("Status: %s\n", r.Status)
	fmt.Printf("Players (%d):\n", len(r.Slots))
	for _, s := range r.Slots {
		readyStr := ""
		if s.Ready {
			readyStr = " [ready]"
		}
		fmt.Printf("  %d. %s (%s)%s\n", s.Number, s.Name, s.PlayerID, readyStr)
	}
}

func (o *Output) printQueueStatus(q QueueStatus) {
	if !q.Queued {
		fmt.Println("Not queued")
		return
	}
	fmt.Printf("Queued: %s\n", q.TicketID)
	fmt.Printf("Mode: %s\n", q.Mode)
	if q.EnqueuedAt != nil {
		fmt.Printf("Waiting: %s\n", time.Since(*q.EnqueuedAt).Round(time.Second))
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
}
