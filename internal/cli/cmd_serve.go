package cli

import (
	"github.com/spf13/cobra"

	"stockwatch/internal/bootstrap"
)

func newServeCmd(_ *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the alert workers and the health/metrics server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := bootstrap.NewContainer()
			defer c.Shutdown()

			if err := c.Init(); err != nil {
				return err
			}
			if err := c.Start(); err != nil {
				return err
			}

			select {
			case <-cmd.Context().Done():
				c.Log.Infow("Shutdown signal received")
			case <-c.Context.Done():
				c.Log.Warnw("Container stopped on its own")
			}
			return nil
		},
	}
}
