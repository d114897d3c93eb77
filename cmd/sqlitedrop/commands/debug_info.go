package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sqlitedrop/sqlitedrop/pkg/health"
)

func newDebugInfoCommand() *cobra.Command {
	var (
		input  string
		format string
		redact bool
	)

	cmd := &cobra.Command{
		Use:   "debug-info",
		Short: "Print the diagnostics report",
		Long: `Print the diagnostics report after the SQLite filter has been applied.

A report exported by the host can be passed with --input (JSON). When the
configured database type is not "sqlite" the report is printed unchanged.
--redact drops private sections and fields, as for a report meant to be
shared.`,
		Example: `  sqlitedrop debug-info --database-type sqlite

  # Filter a report exported by the host and share it
  sqlitedrop debug-info --input report.json --format yaml --redact`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				format = "json"
			}
			if format != "text" && format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported format %q (text, json, yaml)", format)
			}

			info, err := readInfo(input)
			if err != nil {
				return err
			}

			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			info = e.plugin.Hooks().ApplyDebugInformation(cmd.Context(), info)
			if redact {
				info = info.Redacted()
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return printJSON(out, info)
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(info)
			default:
				printInfo(out, info)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "diagnostics report to filter (JSON file, - for stdin)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json, yaml)")
	cmd.Flags().BoolVar(&redact, "redact", false, "omit private sections and fields")

	return cmd
}

func readInfo(path string) (health.Info, error) {
	info := health.Info{}
	if path == "" {
		return info, nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return info, nil
}

func printInfo(w io.Writer, info health.Info) {
	if len(info) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("(empty report)"))
		return
	}

	for _, key := range sortedKeys(info) {
		section := info[key]
		if section == nil {
			continue
		}
		label := section.Label
		if label == "" {
			label = key
		}
		fmt.Fprintln(w, titleStyle.Render(label))

		t := newTable(w)
		t.AppendHeader(table.Row{"Field", "Value"})
		for _, name := range sortedKeys(section.Fields) {
			field := section.Fields[name]
			fieldLabel := field.Label
			if fieldLabel == "" {
				fieldLabel = name
			}
			t.AppendRow(table.Row{fieldLabel, formatValue(field.Value)})
		}
		t.Render()
		fmt.Fprintln(w)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
