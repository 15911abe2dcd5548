// Package cli is the stockwatch command line: the long-running service plus
// one-shot commands that drive the pipeline and the alert engine directly.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stockwatch/internal/bootstrap"
)

// App lazily builds the container so help and flag errors need no config
type App struct {
	container *bootstrap.Container
	jsonOut   bool
}

// core initializes everything except the ops server and workers
func (a *App) core() (*bootstrap.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	c := bootstrap.NewContainer()
	if err := c.InitCore(); err != nil {
		c.Shutdown()
		return nil, err
	}
	a.container = c
	return c, nil
}

func (a *App) close() {
	if a.container != nil {
		a.container.Shutdown()
		a.container = nil
	}
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:           "stockwatch",
		Short:         "Stock analysis pipeline and adaptive price alerts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}
	root.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(newServeCmd(app))
	root.AddCommand(newAnalyzeCmd(app))
	addAlertCommands(root, app)
	root.AddCommand(newEventsCmd(app))
	return root
}

// Execute runs the root command until it returns or SIGINT/SIGTERM arrives
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
