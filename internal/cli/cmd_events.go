package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/adapters/kafka"
	"stockwatch/internal/events"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

func newEventsCmd(app *App) *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect published alert events",
	}
	eventsCmd.AddCommand(newEventsTailCmd(app))
	return eventsCmd
}

func newEventsTailCmd(app *App) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print alert events from Kafka as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
				return err
			}
			if !cfg.Kafka.Enabled() {
				return errors.Wrap(errors.ErrUnavailable, "KAFKA_BROKERS is not set")
			}
			if group == "" {
				group = "stockwatch-tail-" + uuid.NewString()[:8]
			}

			var (
				out = cmd.OutOrStdout()
				mu  sync.Mutex
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			for _, name := range kafka.AlertTopics {
				topic := cfg.Kafka.TopicPrefix + name
				consumer := kafka.NewConsumer(kafka.ConsumerConfig{
					Brokers: cfg.Kafka.Brokers,
					GroupID: group,
					Topic:   topic,
				})

				g.Go(func() error {
					defer consumer.Close()
					err := consumer.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
						ev, err := events.DecodeAlertEvent(msg.Value)
						if err != nil {
							return err
						}
						mu.Lock()
						defer mu.Unlock()
						if app.jsonOut {
							return writeJSON(out, ev)
						}
						printEvent(out, topic, ev)
						return nil
					})
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				})
			}

			fmt.Fprintf(out, "tailing %v (group %s), ctrl-c to stop\n", kafka.AlertTopics, group)
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "consumer group; a fresh one reads only new events")
	return cmd
}
