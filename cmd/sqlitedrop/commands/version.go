package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sqlitedrop/sqlitedrop/pkg/sqlite"
)

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			info := map[string]string{
				"version":    version,
				"commit":     commit,
				"build_date": buildDate,
			}

			engine := sqlite.NewRuntime(zerolog.Nop())
			if v, err := engine.Version(ctx); err == nil {
				info["sqlite"] = v
			} else {
				info["sqlite"] = "unavailable"
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), info)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sqlitedrop %s (commit: %s, built: %s)\nsqlite %s\n",
				version, commit, buildDate, info["sqlite"])
			return nil
		},
	}
}
