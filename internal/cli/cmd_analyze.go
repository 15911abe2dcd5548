package cli

import (
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	var in symbolInput

	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Run the full analysis pipeline for one symbol",
		Example: `  stockwatch analyze AAPL --user 3f1c2b9e-8d7a-4c5b-9e6f-1a2b3c4d5e6f
  stockwatch analyze MSFT --user $USER_ID --json`,
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

			res, err := c.Business.Pipeline.Run(cmd.Context(), in.userID(), in.Symbol)
			if err != nil {
				return err
			}

			if app.jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserID, "user", "", "user id (uuid) the run is cached under")
	return cmd
}
