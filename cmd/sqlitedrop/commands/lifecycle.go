package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sqlitedrop/sqlitedrop/pkg/telemetry"
)

func newActivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Install the db.php drop-in",
		Long: `Install the db.php drop-in into the content directory.

Nothing is written when the SQLite engine is unavailable or a db.php file is
already present; an existing drop-in is never overwritten. A partially
written drop-in is removed again.`,
		Example: `  # Install into a local content directory
  sqlitedrop activate --content-dir /srv/www/wp-content

  # Install over SFTP using a config file
  sqlitedrop activate --config /etc/sqlitedrop.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(cmd, "activate", func(e *env, ctx context.Context) error {
				return e.plugin.Hooks().FireActivate(ctx)
			})
		},
	}
}

func newDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Remove the db.php drop-in",
		Long: `Remove the db.php drop-in from the content directory.

The file is removed whether or not the SQLite engine is available. Removing
an absent drop-in is not an error.`,
		Example: `  sqlitedrop deactivate --content-dir /srv/www/wp-content`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLifecycle(cmd, "deactivate", func(e *env, ctx context.Context) error {
				return e.plugin.Hooks().FireDeactivate(ctx)
			})
		},
	}
}

// runLifecycle fires a lifecycle hook and prints every lifecycle event it
// produces.
func runLifecycle(cmd *cobra.Command, hook string, fire func(*env, context.Context) error) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	out := cmd.OutOrStdout()
	e.tel.Events.Subscribe(func(ev telemetry.Event) {
		printLifecycleEvent(out, ev)
	}, telemetry.FilterByType(
		telemetry.EventTypeDropInInstalled,
		telemetry.EventTypeDropInRemoved,
		telemetry.EventTypeDropInSkipped,
		telemetry.EventTypeDropInFailed,
	))

	log.Debug().Str("hook", hook).Msg("Firing hook")
	if err := fire(e, cmd.Context()); err != nil {
		return fmt.Errorf("%s failed: %w", hook, err)
	}
	return nil
}

func printLifecycleEvent(w io.Writer, ev telemetry.Event) {
	if jsonOutput {
		_ = printJSON(w, ev)
		return
	}

	switch ev.Type {
	case telemetry.EventTypeDropInInstalled, telemetry.EventTypeDropInRemoved:
		fmt.Fprintln(w, okStyle.Render("✓ "+ev.Message))
	case telemetry.EventTypeDropInSkipped:
		fmt.Fprintln(w, mutedStyle.Render("- "+ev.Message))
	case telemetry.EventTypeDropInFailed:
		fmt.Fprintln(w, errorStyle.Render("✗ "+ev.Message))
	}
}
