package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Show the current project's saved configuration",
	Args:  cobra.NoArgs,
	RunE:  runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	addOutputFlag(projectCmd)
}

func runProject(cmd *cobra.Command, args []string) error {
	view, err := app.manager.Project("")
	if err != nil {
		return fmt.Errorf("failed to resolve project: %w", err)
	}

	w := cmd.OutOrStdout()
	if done, err := writeStructured(w, view); done {
		return err
	}

	fmt.Fprintf(w, "📂 Project: %s\n", view.Name)
	fmt.Fprintf(w, "   Path: %s\n", view.ID)

	if view.Config == nil {
		fmt.Fprintln(w, "\n❌ No saved configuration")
		fmt.Fprintln(w, "   Run with -m <memory> to save a config")
		return nil
	}

	fmt.Fprintln(w, "\n⚙️  Saved Configuration:")
	table := newTable(w, "Runtime", "Memory (MB)", "Last used")
	table.Append(
		string(view.Config.Runtime),
		fmt.Sprintf("%d", view.Config.MemoryMB),
		lastUsed(view.Config.LastUsed),
	)
	table.Render()
	return nil
}
