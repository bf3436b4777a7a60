package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/pacer/internal/config"
	"github.com/playperu/pacer/internal/database"
	"github.com/playperu/pacer/internal/handler/health"
	"github.com/playperu/pacer/internal/migrations"
	"github.com/playperu/pacer/internal/roster"
	"github.com/playperu/pacer/internal/server"
	"github.com/playperu/pacer/internal/snapshot"
	"github.com/playperu/pacer/internal/struggle"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Run(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	for _, m := range applied {
		logger.Info("applied migration", "version", m.Version, "name", m.Name, "duration", m.Duration)
	}
	version, err := migrations.Version(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	store := server.NewDocStore(db)
	if cfg.SeedDemo {
		if err := server.SeedPacers(ctx, logger, store, roster.Demo()); err != nil {
			return fmt.Errorf("seeding pacers: %w", err)
		}
	}

	checks := map[string]health.Checker{"sqlite": store}

	// --- Redis (optional) ---
	var snapshots *snapshot.Cache
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		snapshots = snapshot.New(rdb, cfg.SnapshotTTL)
		checks["redis"] = snapshots
		logger.Info("connected to redis", "snapshot_ttl", cfg.SnapshotTTL)
	} else {
		logger.Info("redis not configured, stats snapshots disabled")
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Options{
		Store:       store,
		Snapshots:   snapshots,
		Checks:      checks,
		Detector:    struggle.NewDetector(struggle.DefaultConfig(), cooldownPolicy(cfg)),
		MemoBaseURL: cfg.MemoBaseURL,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func cooldownPolicy(cfg *config.Config) struggle.CooldownPolicy {
	if cfg.CooldownPolicy == "intensity" {
		return struggle.DefaultIntensityCooldown()
	}
	return struggle.FixedCooldown(cfg.HypeCooldown)
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
