package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newConnectCmd() *cobra.Command {
	var playerID string
	var playerName string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to the realtime WebSocket endpoint",
		Long: `Connect to the server's WebSocket endpoint, perform the hello
exchange, and stream messages as JSON lines.

Lines read from stdin are sent to the server verbatim, so a session can
be driven by hand:

  {"type":"create_room","data":{"mode":"versus"}}
  {"type":"join_room","data":{"room_code":"ABC234"}}

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(playerID, playerName)
		},
	}

	cmd.Flags().StringVar(&playerID, "player-id", "", "Reuse an existing player identity")
	cmd.Flags().StringVar(&playerName, "name", "Pilot", "Display name for the hello exchange")

	return cmd
}

func runSession(playerID, playerName string) error {
	conn, _, err := websocket.DefaultDialer.Dial(client.WebSocketURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	hello := map[string]any{
		"type": "hello",
		"data": map[string]string{
			"player_id":   playerID,
			"player_name": playerName,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		return fmt.Errorf("hello failed: %w", err)
	}

	// Reader goroutine: print every server frame as a JSON line.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Printf("%s %s\n", time.Now().Format(time.RFC3339), data)
		}
	}()

	// Writer goroutine: forward stdin lines to the server.
	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- scanner.Text()
		}
		close(input)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-done:
			return nil
		case <-sigCh:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		case line, ok := <-input:
			if !ok {
				input = nil
				continue
			}
			if line == "" {
				continue
			}
			if !json.Valid([]byte(line)) {
				fmt.Fprintf(os.Stderr, "not JSON, ignored: %s\n", line)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return fmt.Errorf("send failed: %w", err)
			}
		}
	}
}
