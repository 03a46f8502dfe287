// Package cli implements the cro-pilot command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "cro-pilot",
	Short: "CRO Pilot - automated A/B testing and conversion optimization",
	Long: `CRO Pilot runs automated conversion-rate-optimization: it generates test
hypotheses, collects tracking events, evaluates statistical significance,
declares winners, and rebalances traffic toward the leading variant.

Running without a subcommand starts the server (same as 'cro-pilot serve').`,
	RunE: runServe, // Default action is to start server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", getEnvOrDefault("CRO_CONFIG", ""), "config file path")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
