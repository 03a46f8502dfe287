package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tests",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		tests, err := eng.Store().ListTests(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list tests: %w", err)
		}

		if len(tests) == 0 {
			fmt.Println("No tests found. Create one with 'cro-pilot create'.")
			return nil
		}

		fmt.Println("ID                      NAME                      STATUS          VARIANTS  PAGE          STARTED")
		fmt.Println(strings.Repeat("─", 100))
		for _, t := range tests {
			name := t.Name
			if len(name) > 24 {
				name = name[:21] + "..."
			}
			fmt.Printf("%-22s  %-24s  %-14s  %-8d  %-12s  %s\n",
				shorten(t.ID, 22),
				name,
				t.Status,
				len(t.Variants),
				t.TargetPage,
				t.StartDate.Format(time.DateOnly),
			)
		}
		return nil
	})
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
