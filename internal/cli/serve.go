package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
	"github.com/cro-pilot/cro-pilot/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CRO Pilot server",
	Long: `Start the HTTP server and, when automation is enabled, the background
orchestration scheduler.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		port := cfg.Server.Port
		if servePort != 0 {
			port = servePort
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go eng.RunScheduler(ctx)

		fmt.Printf("cro-pilot running on http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")

		srv := server.New(eng, eng.Store(), eng.Logger(), port)
		return srv.Start()
	})
}
