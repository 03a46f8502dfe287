package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one orchestration cycle",
	Long: `Run a single orchestration cycle: aggregate metrics, evaluate every
active test, execute decisions, start new tests, and rebalance traffic.`,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		result, err := eng.Orchestrate(context.Background())
		if err != nil {
			return fmt.Errorf("orchestration failed: %w", err)
		}

		fmt.Printf("Cycle complete: %d decision(s), %d active test(s), %d event(s) processed\n",
			len(result.Decisions), result.ActiveTests, result.EventsProcessed)

		for _, d := range result.Decisions {
			fmt.Printf("  %s → %s", d.TestID, d.Action)
			if d.Winner != "" {
				fmt.Printf(" (winner: %s, confidence: %.1f%%)", d.Winner, d.Confidence)
			}
			if d.Reason != "" {
				fmt.Printf(": %s", d.Reason)
			}
			fmt.Println()
		}
		return nil
	})
}
