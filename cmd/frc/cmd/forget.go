package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget [PATH]",
	Short: "Remove the saved configuration for the current or given project",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runForget,
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	res, err := app.manager.Forget(path, "")
	if err != nil {
		return fmt.Errorf("failed to forget project: %w", err)
	}

	w := cmd.OutOrStdout()
	if res.Removed {
		fmt.Fprintf(w, "✅ Removed config for '%s'\n", res.Name)
	} else {
		fmt.Fprintf(w, "❌ No config found for '%s'\n", res.Name)
	}
	return nil
}
