package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var outputFormat string

func addOutputFlag(c *cobra.Command) {
	c.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")
}

// writeStructured prints v as JSON or YAML and reports whether it did.
// The table format is left to the caller.
func writeStructured(w io.Writer, v any) (bool, error) {
	switch outputFormat {
	case "", "table":
		return false, nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return true, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return true, nil
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return true, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return true, encoder.Close()
	default:
		return true, fmt.Errorf("unknown output format %q (use table, json or yaml)", outputFormat)
	}
}

func newTable(w io.Writer, header ...any) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(header...)
	return table
}

// lastUsed renders a timestamp as "3 days ago (2026-10-11 09:00:00)"
func lastUsed(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", humanize.Time(t), t.Local().Format("2006-01-02 15:04:05"))
}
