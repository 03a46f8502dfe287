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

var endWinner string

var endCmd = &cobra.Command{
	Use:   "end <test-id>",
	Short: "End a test",
	Long: `End a test manually. With --winner the variant is promoted to
production and the test is archived; without it the test is simply stopped.

Examples:
  cro-pilot end test_a1b2c3
  cro-pilot end test_a1b2c3 --winner variant_1`,
	Args: cobra.ExactArgs(1),
	RunE: runEnd,
}

func init() {
	endCmd.Flags().StringVarP(&endWinner, "winner", "w", "", "winning variant id")
	rootCmd.AddCommand(endCmd)
}

func runEnd(cmd *cobra.Command, args []string) error {
	testID := args[0]

	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		test, err := eng.EndTest(context.Background(), testID, endWinner)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("test '%s' not found", testID)
		}
		if err != nil {
			return fmt.Errorf("failed to end test: %w", err)
		}

		if endWinner != "" {
			fmt.Printf("Test '%s' completed, winner %s promoted to production\n", test.Name, endWinner)
		} else {
			fmt.Printf("Test '%s' ended without a winner\n", test.Name)
		}
		return nil
	})
}
