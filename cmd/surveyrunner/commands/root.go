package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"surveyrunner/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "surveyrunner",
	Short: "surveyrunner completes receipt customer satisfaction surveys and has the reward code emailed to you.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every request and internal step.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !isTerminal(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func defaultDbPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".surveyrunner", "history.db")
	}
	return filepath.Join(dir, "surveyrunner", "history.db")
}
