package commands

import (
	"io"

	"surveyrunner/internal/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var versionsCatalog string

func init() {
	versionsCmd.Flags().StringVar(&versionsCatalog, "catalog", "", "A json5 catalog laid over the built in one.")
	rootCmd.AddCommand(versionsCmd)
}

var versionsCmd = &cobra.Command{
	Use:   "versions [--catalog <path/to/catalog.json5>]",
	Short: "Lists the survey versions surveyrunner knows about.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(versionsCatalog)
		if err != nil {
			return err
		}
		renderVersions(cmd.OutOrStdout(), cat)
		return nil
	},
}

func renderVersions(w io.Writer, cat catalog.Catalog) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Version", "Base url", "Strategy", "Supported", "Answers"})
	for _, entry := range cat.Entries() {
		if !entry.Supported {
			t.AppendRow(table.Row{entry.Version, "-", "-", "no", "-"})
			continue
		}
		t.AppendRow(table.Row{
			entry.Version,
			entry.Site.BaseUrl,
			string(entry.Site.EntryStrategy),
			"yes",
			entry.Site.Policy.Len(),
		})
	}
	t.Render()
}
