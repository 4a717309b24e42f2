package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Report storage status, active rooms and connected players.

With --wait the command polls until the server answers "ok" or the wait
elapses, which is handy in scripts that start the server first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline := time.Now().Add(wait)
			for {
				var result HealthResult
				err := client.Get("/api/v1/health", &result)
				if err == nil && result.Status == "ok" {
					NewOutput(cfg.Output).Print(result)
					return nil
				}
				if time.Now().After(deadline) {
					if err != nil {
						return err
					}
					NewOutput(cfg.Output).Print(result)
					return fmt.Errorf("server is %s", result.Status)
				}
				time.Sleep(250 * time.Millisecond)
			}
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep polling this long for a healthy server")

	return cmd
}
