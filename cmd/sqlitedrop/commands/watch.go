package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sqlitedrop/sqlitedrop/pkg/health"
)

func newWatchCommand() *cobra.Command {
	var (
		debounce  time.Duration
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check notices whenever the drop-in changes",
		Long: `Watch the content directory and print the current notices each time db.php
is created, written, renamed or removed. Prometheus metrics are served on
the configured metrics address until interrupted.

Only local content directories can be watched.`,
		Example: `  sqlitedrop watch --content-dir /srv/www/wp-content --metrics-addr :9464`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			ctx := cmd.Context()

			if !noMetrics {
				addr, err := e.tel.StartMetricsServer(ctx)
				if err != nil {
					return fmt.Errorf("failed to start metrics server: %w", err)
				}
				log.Info().Str("addr", addr).Msg("Serving metrics")
			}

			out := cmd.OutOrStdout()
			w, err := e.plugin.Watch(ctx, debounce, func(notices []health.Notice) {
				if err := e.tel.Flush(ctx); err != nil {
					log.Debug().Err(err).Msg("Trace flush failed")
				}
				fmt.Fprintln(out, mutedStyle.Render(time.Now().Format(time.RFC3339)))
				if jsonOutput {
					if notices == nil {
						notices = []health.Notice{}
					}
					_ = printJSON(out, notices)
					return
				}
				printNotices(out, notices)
			})
			if err != nil {
				return err
			}
			defer w.Stop()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", health.DefaultDebounce, "delay before re-checking after a change")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not serve Prometheus metrics")

	return cmd
}
