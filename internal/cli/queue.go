package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Matchmaking queue commands",
	}

	cmd.AddCommand(newQueueJoinCmd())
	cmd.AddCommand(newQueueLeaveCmd())

	return cmd
}

func newQueueJoinCmd() *cobra.Command {
	var queueType, mode string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join the casual or ranked queue",
		Long: `Join a matchmaking queue. A match is announced as a matchFound event,
so run "numduel events" alongside to see it. Disconnecting the event
stream also leaves the queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"queue_type": strings.ToLower(queueType)}
			if mode != "" {
				req["game_mode"] = strings.ToLower(mode)
			}

			var result QueueResult

			if err := client.Post("/api/v1/queue", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&queueType, "type", "casual", "Queue: casual or ranked")
	cmd.Flags().StringVar(&mode, "mode", "", "Game mode: standard or hard (default: standard)")

	return cmd
}

func newQueueLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave the matchmaking queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result QueueResult

			if err := client.Delete("/api/v1/queue", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
