package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the prediction model on archived tests",
	RunE:  runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		model, err := eng.Train(context.Background())
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}

		fmt.Printf("Model trained on %d variant sample(s), %d rule(s) induced\n",
			model.SampleSize, len(model.Rules))
		for _, rule := range model.Rules {
			fmt.Printf("  %s: %s (confidence %.0f%%)\n", rule.Name, rule.Recommendation, rule.Confidence*100)
		}
		return nil
	})
}
