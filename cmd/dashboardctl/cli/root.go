package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"example.com/dashboard/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "dashboardctl",
	Short:         "Operator tooling for the fitness dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var postgresURL string

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&postgresURL, "postgres-url", "", "Postgres connection string (defaults to POSTGRES_URL)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(userCmd)
}

// connect opens a pool from --postgres-url, falling back to the service configuration.
func connect(ctx context.Context) (*pgxpool.Pool, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	url := postgresURL
	if url == "" {
		url = cfg.PostgresURL
	}
	if url == "" {
		return nil, cfg, fmt.Errorf("no database configured: set --postgres-url or POSTGRES_URL")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, cfg, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, cfg, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, cfg, nil
}
