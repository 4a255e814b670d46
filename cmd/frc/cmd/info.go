package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info RUNTIME",
	Short: "Show memory recommendations for a runtime",
	Long:  `Shows the recommended heap ceiling for node, deno or bun based on this machine's memory.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	addOutputFlag(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	kind, err := parseRuntime(args[0])
	if err != nil {
		return err
	}

	view := app.manager.Recommendation(kind)
	w := cmd.OutOrStdout()
	if done, err := writeStructured(w, view); done {
		return err
	}

	fmt.Fprintf(w, "\n📊 System: %d GB\n", view.SystemGB)
	fmt.Fprintf(w, "\n💡 Recommendations for %s:\n", kind)
	for _, line := range strings.Split(view.Advice, "\n") {
		fmt.Fprintf(w, "   %s\n", line)
	}

	if view.SupportsLimit {
		fmt.Fprintln(w)
		table := newTable(w, "Project size", "Memory (MB)")
		table.Append("typical", fmt.Sprintf("%d", view.DefaultMB))
		table.Append("large", fmt.Sprintf("%d", view.LargeMB))
		table.Render()

		fmt.Fprintf(w, "\n📝 Examples:\n   %s\n", view.Example)
	}
	return nil
}
