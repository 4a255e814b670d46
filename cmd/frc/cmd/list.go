package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/frc/internal/project"
	"github.com/psantana5/frc/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved project configurations",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	addOutputFlag(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	projects, err := app.manager.Projects()
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if projects == nil {
		projects = []store.ProjectConfig{}
	}

	w := cmd.OutOrStdout()
	if done, err := writeStructured(w, projects); done {
		return err
	}

	if len(projects) == 0 {
		fmt.Fprintln(w, "No saved project configurations")
		return nil
	}

	fmt.Fprintln(w, "📚 Saved Project Configurations:")
	fmt.Fprintln(w)

	table := newTable(w, "Project", "Path", "Runtime", "Memory (MB)", "Last used")
	for _, cfg := range projects {
		table.Append(
			project.Name(cfg.ProjectID),
			cfg.ProjectID,
			string(cfg.Runtime),
			fmt.Sprintf("%d", cfg.MemoryMB),
			lastUsed(cfg.LastUsed),
		)
	}
	table.Render()

	fmt.Fprintf(w, "\nTotal projects: %d\n", len(projects))
	return nil
}
