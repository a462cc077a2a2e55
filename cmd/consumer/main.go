package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/dashboard/internal/config"
	"example.com/dashboard/internal/consumer"
	"example.com/dashboard/internal/logging"
	persistence "example.com/dashboard/internal/persistence/postgres"
	"example.com/dashboard/internal/streaks"
	httptransport "example.com/dashboard/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard-consumer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	projector := streaks.NewProjector(persistence.NewRepository(pool), cfg.Timezone, logger.Named("streaks"))
	handler := consumer.NewStreakHandler(projector, logger.Named("streak-handler"))
	deadLetter := consumer.NewDeadLetterWriter(pool)

	g, gctx := errgroup.WithContext(ctx)

	metrics := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.MetricsAddress), promhttp.Handler(), logger)
	g.Go(func() error {
		return metrics.Run(gctx)
	})

	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		proc := consumer.NewProcessor(reader, handler,
			consumer.WithLogger(logger.With(zap.String("topic", topic))),
			consumer.WithRetry(cfg.ConsumerRetries, cfg.ConsumerRetryBackoff),
			consumer.WithDeadLetter(deadLetter),
		)

		g.Go(func() error {
			defer reader.Close()
			logger.Info("consumer started", zap.String("topic", topic), zap.String("group", cfg.ConsumerGroupID))
			if err := proc.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consumer %s: %w", topic, err)
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("dashboard-consumer stopped", zap.Error(err))
	return err
}
