package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/decision"
	"github.com/cro-pilot/cro-pilot/internal/engine"
	"github.com/cro-pilot/cro-pilot/internal/metrics"
	"github.com/cro-pilot/cro-pilot/internal/stats"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <test-id>",
	Short: "Show detailed results for a test",
	Long:  `Show per-variant conversion rates, confidence intervals, and the current decision.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	testID := args[0]

	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		ctx := context.Background()

		test, err := eng.Store().GetTest(ctx, testID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("test '%s' not found", testID)
		}
		if err != nil {
			return fmt.Errorf("failed to get test: %w", err)
		}
		events, err := eng.Store().ListEvents(ctx)
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}

		tm := metrics.Aggregate(test, events, cfg.Goals)
		d := decision.NewEngine(cfg).EvaluateTest(test, tm)

		fmt.Printf("TEST: %s\n", test.Name)
		fmt.Printf("STATUS: %s\n", test.Status)
		fmt.Printf("TARGET PAGE: %s\n", test.TargetPage)
		fmt.Printf("STARTED: %s\n", test.StartDate.Format("2006-01-02"))
		fmt.Println()

		fmt.Println("VARIANT           IMPRESSIONS  CONVERSIONS  RATE     95% CI              TRAFFIC")
		fmt.Println(strings.Repeat("─", 85))

		for _, v := range test.Variants {
			vm := tm[v.ID]
			var stat *store.VariantStat
			if d.Analysis != nil {
				for i := range d.Analysis.Variants {
					if d.Analysis.Variants[i].VariantID == v.ID {
						stat = &d.Analysis.Variants[i]
						break
					}
				}
			}

			ciStr := "N/A"
			rateStr := "0%"
			if stat != nil && stat.Impressions > 0 {
				ciStr = fmt.Sprintf("[%.1f%%, %.1f%%]",
					stat.ConfidenceInterval.Lower*100, stat.ConfidenceInterval.Upper*100)
				rateStr = fmt.Sprintf("%.2f%%", stat.ConversionRate*100)
			}

			name := v.Name
			if len(name) > 16 {
				name = name[:13] + "..."
			}
			fmt.Printf("%-16s  %-11d  %-11d  %-7s  %-18s  %.1f%%\n",
				name, vm.Impressions, vm.Conversions, rateStr, ciStr, v.TrafficAllocation)
		}

		fmt.Println()
		fmt.Printf("DECISION: %s", d.Action)
		if d.Winner != "" {
			fmt.Printf(" (winner: %s, confidence: %.1f%%)", d.Winner, d.Confidence)
		}
		fmt.Println()
		if d.Reason != "" {
			fmt.Printf("REASON: %s\n", d.Reason)
		}
		if d.Recommendation != "" {
			fmt.Printf("RECOMMENDATION: %s\n", d.Recommendation)
		}

		if d.Action == store.ActionContinue && len(test.Variants) > 0 {
			control := tm[test.Variants[0].ID]
			if baseline := stats.ConversionRate(control.Conversions, control.Impressions); baseline > 0 {
				needed := stats.RequiredSampleSize(baseline, cfg.Statistics.MinimumEffectSize)
				fmt.Printf("REQUIRED SAMPLE SIZE: ~%d impressions per variant\n", needed)
			}
		}
		return nil
	})
}
