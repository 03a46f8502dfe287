package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show content recommendations and suggested tests",
	RunE:  runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		advice, err := eng.Predictor().ContentRecommendations(context.Background())
		switch {
		case errors.Is(err, store.ErrNotFound):
			fmt.Println("No trained model yet. Run 'cro-pilot train' once tests have completed.")
		case err != nil:
			return fmt.Errorf("failed to load recommendations: %w", err)
		default:
			fmt.Printf("Content recommendations (model trained %s, %d samples):\n",
				advice.TrainedAt.Format("2006-01-02"), advice.SampleSize)
			for _, rec := range advice.Recommendations {
				fmt.Printf("  [%s] %s (%.0f%% confidence)\n", rec.Priority, rec.Recommendation, rec.Confidence)
			}
			fmt.Println()
		}

		hypotheses := eng.Hypotheses()
		fmt.Printf("Suggested tests (%d):\n", len(hypotheses))
		for i, h := range hypotheses {
			if i == 5 {
				break
			}
			fmt.Printf("  [%s] %s (%d variants, expected impact %s)\n",
				h.Priority, h.Hypothesis, len(h.Variants), h.ExpectedImpact)
		}
		return nil
	})
}
