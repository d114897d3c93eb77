package commands

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sqlitedrop/sqlitedrop/pkg/plugin"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize engine availability and drop-in presence",
		Example: `  sqlitedrop status
  sqlitedrop status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			st, err := e.plugin.Status(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), st)
			}
			printStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func printStatus(w io.Writer, st plugin.Status) {
	version := any(st.EngineVersion)
	if st.EngineVersion == "" {
		version = nil
	}

	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Filesystem method", st.Method},
		{"Content directory", st.ContentDir},
		{"Drop-in", st.DropInPath},
		{"Drop-in present", formatValue(st.DropInPresent)},
		{"SQLite engine available", formatValue(st.EngineAvailable)},
		{"SQLite version", formatValue(version)},
		{"Database type", st.DatabaseType},
		{"Active engine", st.ActiveEngine},
	})
	t.Render()
}
