package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Matchmaking inspection",
	}

	cmd.AddCommand(newMatchStatusCmd())

	return cmd
}

func newMatchStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <player-id>",
		Short: "Show a player's matchmaking queue status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result QueueStatus
			path := "/api/v1/matchmaking/status?player_id=" + url.QueryEscape(args[0])
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
