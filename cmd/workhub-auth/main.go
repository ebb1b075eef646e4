package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/latamworkhub/workhub-auth/config"
	"github.com/latamworkhub/workhub-auth/internal/bootstrap"
	httpx "github.com/latamworkhub/workhub-auth/internal/http"
	"github.com/latamworkhub/workhub-auth/internal/observability/statsd"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	cfgPtr := &cfg

	logger.InfoContext(ctx, "starting workhub-auth service",
		"store_kind", cfg.Store.Kind,
		"auth_mode", cfg.Auth.Mode,
		"addr", cfg.HTTP.Addr,
		"dev", cfg.IsDev)

	redisClient, db, err := initInfrastructure(cfgPtr, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}
	if db != nil {
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close database failed", "error", cerr)
			}
		}()
	}

	metrics := bootstrap.BuildMetrics(cfg.Observability, logger)

	var sink statsd.Sink
	if metrics != nil {
		sink = metrics
	}

	svc, state, err := bootstrap.BuildAuthService(ctx, bootstrap.AuthDeps{
		Config:      cfgPtr,
		RedisClient: redisClient,
		DB:          db,
		Logger:      logger,
		Metrics:     sink,
	})
	if err != nil {
		return fmt.Errorf("build auth service: %w", err)
	}

	// Restore any persisted session before serving traffic.
	if err := svc.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}

	handler := httpx.NewRouter(httpx.RouterOptions{
		Auth:    svc,
		State:   state,
		Logger:  logger,
		Metrics: sink,
	})

	return bootstrap.RunServerWithShutdown(bootstrap.ServerDeps{
		Config:  cfgPtr,
		Handler: handler,
		Logger:  logger,
		OnShutdown: func() {
			svc.Refresh().Cancel()
			if metrics != nil {
				if cerr := metrics.Close(); cerr != nil {
					logger.Error("close statsd client failed", "error", cerr)
				}
			}
		},
	})
}

// initInfrastructure connects only the backends the configured store
// kind actually needs.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, *sql.DB, error) {
	var (
		redisClient redis.UniversalClient
		db          *sql.DB
		err         error
	)

	switch cfg.Store.Kind {
	case config.StoreKindRedis:
		redisClient, err = bootstrap.ConnectRedis(cfg.Redis, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
	case config.StoreKindPostgres:
		db, err = bootstrap.ConnectDB(cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	return redisClient, db, nil
}
