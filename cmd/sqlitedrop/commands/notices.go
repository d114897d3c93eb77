package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sqlitedrop/sqlitedrop/pkg/health"
)

func newNoticesCommand() *cobra.Command {
	var failOnNotice bool

	cmd := &cobra.Command{
		Use:   "notices",
		Short: "Show warnings about the SQLite integration",
		Long: `Show the warnings an operator would see while the integration is active.

At most one notice is shown: a missing SQLite engine takes precedence over a
missing drop-in.`,
		Example: `  sqlitedrop notices --content-dir /srv/www/wp-content

  # Exit non-zero when a notice is present (for health checks)
  sqlitedrop notices --fail`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			notices := e.plugin.Hooks().FireAdminNotices(cmd.Context())

			if jsonOutput {
				if notices == nil {
					notices = []health.Notice{}
				}
				if err := printJSON(cmd.OutOrStdout(), notices); err != nil {
					return err
				}
			} else {
				printNotices(cmd.OutOrStdout(), notices)
			}

			if failOnNotice && len(notices) > 0 {
				return fmt.Errorf("%d notice(s) present", len(notices))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnNotice, "fail", false, "exit non-zero when any notice is present")

	return cmd
}

func printNotices(w io.Writer, notices []health.Notice) {
	if len(notices) == 0 {
		fmt.Fprintln(w, okStyle.Render("✓ No notices"))
		return
	}
	for _, n := range notices {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("✗ ["+string(n.Code)+"]"), n.Message)
	}
}
