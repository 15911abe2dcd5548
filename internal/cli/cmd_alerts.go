package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// addAlertCommands adds tracking, alert management and the one-shot sweeps
func addAlertCommands(root *cobra.Command, app *App) {
	root.AddCommand(newTrackCmd(app))
	root.AddCommand(newUntrackCmd(app))

	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and manage alerts",
	}
	alertsCmd.AddCommand(newAlertsListCmd(app))
	alertsCmd.AddCommand(newAlertsCreateCmd(app))
	alertsCmd.AddCommand(newAlertsAckCmd(app))
	alertsCmd.AddCommand(newAlertsDeleteCmd(app))
	alertsCmd.AddCommand(newAlertsSummaryCmd(app))
	root.AddCommand(alertsCmd)

	root.AddCommand(newSweepCmd(app))
	root.AddCommand(newSmartSweepCmd(app))
	root.AddCommand(newNotifyCmd(app))
}

func newTrackCmd(app *App) *cobra.Command {
	var in trackInput

	cmd := &cobra.Command{
		Use:   "track <symbol>",
		Short: "Track a symbol and create its default PRICE_DROP alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Symbol = args[0]
			if err := check(in); err != nil {
				return err
			}
			c, err := app.core()
			if err != nil {
				return err
			}

			pos, a, err := c.Business.Alerts.Track(cmd.Context(), in.userID(), in.Symbol, in.threshold())
			if err != nil {
				return err
			}
			if app.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"position": pos, "alert": a})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tracking %s, alert %s %s at %s%%\n",
				pos.Symbol, a.ID, a.Type, a.ThresholdValue.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid)")
	cmd.Flags().StringVar(&in.Threshold, "threshold", "", "custom drop threshold in percent, e.g. -7.5")
	return cmd
}

func newUntrackCmd(app *App) *cobra.Command {
	var in symbolInput

	cmd := &cobra.Command{
		Use:   "untrack <symbol>",
		Short: "Stop tracking a symbol and remove its pending alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Symbol = args[0]
			if err := check(in); err != nil {
				return err
			}
			c, err := app.core()
			if err != nil {
				return err
			}

			n, err := c.Business.Alerts.Untrack(cmd.Context(), in.userID(), in.Symbol)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "untracked %s, %d alert(s) retired\n", in.Symbol, n)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid)")
	return cmd
}

func newAlertsListCmd(app *App) *cobra.Command {
	var (
		in         userInput
		activeOnly bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := check(in); err != nil {
				return err
			}
			c, err := app.core()
			if err != nil {
				return err
			}

			list := c.Business.Alerts.ListUserAlerts
			if activeOnly {
				list = c.Business.Alerts.ListActiveAlerts
			}
			alerts, err := list(cmd.Context(), in.userID())
			if err != nil {
				return err
			}
			if app.jsonOut {
				return writeJSON(cmd.OutOrStdout(), alerts)
			}
			printAlerts(cmd.OutOrStdout(), alerts, time.Now())
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid)")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only PENDING and TRIGGERED alerts")
	return cmd
}

func newAlertsCreateCmd(app *App) *cobra.Command {
	var in createAlertInput

	cmd := &cobra.Command{
		Use:   "create <symbol>",
		Short: "Create an additional alert on a symbol",
		Example: `  stockwatch alerts create TSLA --user $USER_ID --type PRICE_SPIKE --threshold 8
  stockwatch alerts create TSLA --user $USER_ID --type VOLATILITY --threshold 4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Symbol = args[0]
			if err := check(in); err != nil {
				return err
			}
			c, err := app.core()
			if err != nil {
				return err
			}

			st, err := c.Repos.Stocks.GetBySymbol(cmd.Context(), in.Symbol)
			if err != nil {
				return err
			}
			a, err := c.Business.Alerts.CreateAlert(cmd.Context(), in.userID(), st.ID, in.alertType(), in.threshold())
			if err != nil {
				return err
			}
			if app.jsonOut {
				return writeJSON(cmd.OutOrStdout(), a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s on %s\n", a.ID, a.Type, a.Symbol)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid)")
	cmd.Flags().StringVar(&in.Type, "type", "", "PRICE_DROP, PRICE_SPIKE, VOLATILITY or VOLUME_ANOMALY")
	cmd.Flags().StringVar(&in.Threshold, "threshold", "", "threshold value")
	return cmd
}

func newAlertsAckCmd(app *App) *cobra.Command {
	var in alertInput

	cmd := &cobra.Command{
		Use:   "ack <alert-id>",
		Short: "Acknowledge an alert; a dropped alert re-arms once the price recovers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.AlertID = args[0]
			if err := check(in); err != nil {
				return err
			}
			c, err := app.core()
			if err != nil {
				return err
			}

			alertID, userID := in.ids()
			a, err := c.Business.Alerts.Acknowledge(cmd.Context(), alertID, userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", a.ID, a.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid)")
	return cmd
}

func newAlertsDeleteCmd(app *App) *cobra.Command {
	var in alertInput

	cmd := &cobra.Command{
		Use:   "delete <alert-id>",
		Short: "Delete an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.AlertID = args[0]
			if err := check(in); err != nil {
				return err
			}
			c, err := app.core()
			if err != nil {
				return err
			}

			alertID, userID := in.ids()
			if err := c.Business.Alerts.Delete(cmd.Context(), alertID, userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", alertID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid)")
	return cmd
}

func newAlertsSummaryCmd(app *App) *cobra.Command {
	var in userInput

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Count a user's alerts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := check(in); err != nil {
				return err
			}
			c, err := app.core()
			if err != nil {
				return err
			}

			s, err := c.Business.Alerts.Summary(cmd.Context(), in.userID())
			if err != nil {
				return err
			}
			if app.jsonOut {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total %d: pending %d, triggered %d, acknowledged %d, expired %d\n",
				s.Total, s.Pending, s.Triggered, s.Acknowledged, s.Expired)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid)")
	return cmd
}

func newSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one threshold sweep over every PENDING and TRIGGERED alert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.core()
			if err != nil {
				return err
			}
			stats, err := c.Business.Engine.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newSmartSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "smart-sweep",
		Short: "Run one pattern-based sweep over PENDING alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.core()
			if err != nil {
				return err
			}
			stats, err := c.Business.Smart.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newNotifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Send notifications for triggered alerts that have not been notified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.core()
			if err != nil {
				return err
			}
			stats, err := c.Business.Dispatcher.Dispatch(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}
