package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cro-pilot/cro-pilot/internal/config"
	"github.com/cro-pilot/cro-pilot/internal/engine"
	"github.com/cro-pilot/cro-pilot/internal/store"
)

var (
	exportFormat string
	exportTestID string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export raw event data",
	Long: `Export raw event data in CSV or JSON format.

Examples:
  cro-pilot export --format csv > events.csv
  cro-pilot export --test test_a1b2c3 --format json > test-events.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	exportCmd.Flags().StringVarP(&exportTestID, "test", "t", "", "restrict to one test id")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

	return withEngine(func(eng *engine.Engine, cfg *config.Config) error {
		events, err := eng.Store().ListEvents(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load events: %w", err)
		}

		if exportTestID != "" {
			filtered := events[:0]
			for _, e := range events {
				if e.TestID == exportTestID {
					filtered = append(filtered, e)
				}
			}
			events = filtered
		}

		if exportFormat == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}
		return writeCSV(os.Stdout, events)
	})
}

func writeCSV(out *os.File, events []*store.Event) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	header := []string{"id", "test_id", "variant_id", "event_type", "timestamp",
		"device_type", "city", "event_category", "scroll_depth", "time_on_page",
		"user_id", "session_id"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range events {
		record := []string{
			e.ID, e.TestID, e.VariantID, e.Type, e.Timestamp.Format(time.RFC3339),
			e.DeviceType, e.City, e.EventCategory,
			strconv.FormatFloat(e.ScrollDepth, 'f', -1, 64),
			strconv.FormatFloat(e.TimeOnPage, 'f', -1, 64),
			e.UserID, e.SessionID,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}
