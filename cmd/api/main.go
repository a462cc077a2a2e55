package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/dashboard/internal/api"
	"example.com/dashboard/internal/auth"
	"example.com/dashboard/internal/config"
	"example.com/dashboard/internal/dashboard"
	"example.com/dashboard/internal/domain"
	"example.com/dashboard/internal/logging"
	"example.com/dashboard/internal/outbox"
	"example.com/dashboard/internal/persistence/memory"
	persistence "example.com/dashboard/internal/persistence/postgres"
	"example.com/dashboard/internal/streaks"
	httptransport "example.com/dashboard/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard-api: %v\n", err)
		os.Exit(1)
	}
}

type backend interface {
	domain.ActivityRepository
	dashboard.Store
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

	g, gctx := errgroup.WithContext(ctx)

	var store backend
	if cfg.PostgresURL == "" {
		store = newMemoryBackend(cfg, logger)
	} else {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		store = persistence.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher := outbox.NewDispatcher(pool, producer, registry, logger, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		g.Go(func() error {
			dispatcher.Start(gctx)
			return nil
		})
	}

	aggregator := dashboard.NewAggregator(store,
		dashboard.WithLocation(cfg.Timezone),
		dashboard.WithLogger(logger.Named("dashboard")),
	)
	handler := api.NewHandler(domain.NewService(store), aggregator,
		api.WithLogger(logger.Named("http")),
		api.WithAllowedOrigin(cfg.AllowedOrigin),
	)
	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	router := handler.Router(authMiddleware, map[string]http.Handler{"/metrics": promhttp.Handler()})

	server := httptransport.NewServer(httptransport.DefaultServerConfig(cfg.HTTPAddress), router, logger)
	g.Go(func() error {
		return server.Run(gctx)
	})

	err = g.Wait()
	logger.Info("dashboard-api stopped", zap.Error(err))
	return err
}

// newMemoryBackend serves local development without Postgres or Kafka. The
// streak projection runs inline on every stored activity.
func newMemoryBackend(cfg config.Config, logger *zap.Logger) *memory.Store {
	var projector *streaks.Projector
	store := memory.NewStore(memory.WithCreateHook(func(record domain.ActivityRecord) {
		_, err := projector.Apply(context.Background(), streaks.Event{
			ActivityID: record.ID,
			UserID:     record.UserID,
			Type:       record.Type,
			Date:       record.Date,
		})
		if err != nil {
			logger.Warn("inline streak projection", zap.String("activity_id", record.ID), zap.Error(err))
		}
	}))
	projector = streaks.NewProjector(store, cfg.Timezone, logger.Named("streaks"))

	for _, userID := range cfg.DevUsers {
		store.PutUser(userID, nil)
	}
	logger.Warn("POSTGRES_URL is empty, using the in-memory store", zap.Strings("seeded_users", cfg.DevUsers))
	return store
}
