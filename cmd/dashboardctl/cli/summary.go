package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"example.com/dashboard/internal/dashboard"
	persistence "example.com/dashboard/internal/persistence/postgres"
)

var (
	summaryUser string
	summaryAt   string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print a user's dashboard summary as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseAt(summaryAt, time.Now())
		if err != nil {
			return err
		}

		pool, cfg, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		aggregator := dashboard.NewAggregator(persistence.NewRepository(pool), dashboard.WithLocation(cfg.Timezone))
		summary, err := aggregator.SummaryAt(cmd.Context(), summaryUser, at)
		if err != nil {
			return err
		}
		return writeSummary(cmd, summary)
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryUser, "user", "", "user id")
	summaryCmd.Flags().StringVar(&summaryAt, "at", "", "reference instant in RFC 3339 (defaults to now)")
	_ = summaryCmd.MarkFlagRequired("user")
}

func parseAt(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return at, nil
}

func writeSummary(cmd *cobra.Command, summary *dashboard.Summary) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
