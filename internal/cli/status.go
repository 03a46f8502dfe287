package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		status, err := eng.Status(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load status: %w", err)
		}

		fmt.Printf("Active tests:    %d / %d allowed\n", status.ActiveTests, status.Config.MaxConcurrentTests)
		fmt.Printf("Total tests:     %d\n", status.TotalTests)
		fmt.Printf("Archived tests:  %d\n", status.ArchivedTests)
		fmt.Printf("Events recorded: %d\n", status.TotalEvents)
		fmt.Printf("Automation:      %s\n", onOff(status.Config.AutomationEnabled))
		fmt.Printf("Auto-declare:    %s\n", onOff(status.Config.AutoDeclaration))
		return nil
	})
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
