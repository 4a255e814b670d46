package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/frc/internal/manager"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove project configurations not used recently",
	Args:  cobra.NoArgs,
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().IntVarP(&cleanupDays, "days", "d", manager.DefaultCleanupDays, "remove configs older than this many days")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	removed, err := app.manager.Cleanup(cleanupDays)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🧹 Cleaned up %d config(s) older than %d days\n", removed, cleanupDays)
	return nil
}
