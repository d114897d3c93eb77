package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sqlitedrop/sqlitedrop/pkg/config"
	"github.com/sqlitedrop/sqlitedrop/pkg/stores"
)

var errNoJournal = errors.New("no journal configured, set journal_file or --journal-file")

func newHistoryCommand() *cobra.Command {
	var (
		operation string
		eventType string
		since     time.Duration
		limit     int
		prune     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded lifecycle events from the journal",
		Long: `List lifecycle and notice events recorded in the journal, newest first.

The journal is only written when journal_file is configured.`,
		Example: `  sqlitedrop history --journal-file /var/lib/sqlitedrop/journal.db
  sqlitedrop history --operation install --since 24h
  sqlitedrop history --prune 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.LoadJournal(config.Options{File: configPath, Flags: cmd.Flags()})
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if path == "" {
				return errNoJournal
			}

			journal, err := stores.Open(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer journal.Close()

			out := cmd.OutOrStdout()
			if prune > 0 {
				n, err := journal.Prune(cmd.Context(), time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("Pruned %d journal entries", n)))
			}

			filter := stores.Filter{Operation: operation, Type: eventType, Limit: limit}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			entries, err := journal.List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(out, entries)
			}
			printHistory(out, entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&operation, "operation", "", "only show entries for this operation (install, remove)")
	cmd.Flags().StringVar(&eventType, "type", "", "only show entries of this event type")
	cmd.Flags().DurationVar(&since, "since", 0, "only show entries newer than this")
	cmd.Flags().IntVar(&limit, "limit", stores.DefaultListLimit, "maximum number of entries")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete entries older than this before listing")

	return cmd
}

func printHistory(w io.Writer, entries []*stores.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No journal entries"))
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"When", "Type", "Operation", "Level", "Message"})
	for _, e := range entries {
		level := string(e.Level)
		switch e.Level {
		case stores.EntryLevelError:
			level = errorStyle.Render(level)
		case stores.EntryLevelWarning:
			level = warnStyle.Render(level)
		}
		t.AppendRow(table.Row{humanize.Time(e.Timestamp), e.Type, e.Operation, level, e.Message})
	}
	t.Render()
}
