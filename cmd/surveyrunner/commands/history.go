package commands

import (
	"io"
	"time"

	"surveyrunner/internal/history"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyDb string
var historyLimit int

func init() {
	historyCmd.Flags().StringVar(&historyDb, "db", defaultDbPath(), "The run history database.")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "How many runs to show, 0 shows all of them.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--db <path/to/history.db>] [--limit <n>]",
	Short: "Shows the outcomes of past runs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(historyDb)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		renderHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}

func renderHistory(w io.Writer, runs []history.Run) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Started", "Version", "Email", "Strategy", "Outcome", "Pages", "Took", "Message"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.Format(time.DateTime),
			run.Version,
			run.Email,
			run.Strategy,
			string(run.Outcome),
			run.Iterations,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
			run.Message,
		})
	}
	t.Render()
}
