// Command recalculate runs the scoring recalculation once and exits.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"prospect_backend/internal/events"
	"prospect_backend/internal/prospects/repository"
	"prospect_backend/internal/prospects/scoring"
	"prospect_backend/internal/scheduler"
	"prospect_backend/platform/config"
	"prospect_backend/platform/db"
	"prospect_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var locker scoring.Locker
	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewRedisClient(cfg)
		if err != nil {
			log.Error("failed to initialize redis client", "error", err)
			os.Exit(1)
		}
		defer func() { _ = client.Close() }()
		locker = scoring.NewRedisLocker(client)
	} else {
		log.Warn("REDIS_URL not configured; running without the run lock")
	}

	recalculator := scoring.New(
		repository.New(pool, cfg.GetCommitChunkSize()),
		locker,
		events.NewInMemoryBus(log),
		log,
		scoring.Options{PreserveHold: cfg.GetScoringPreserveHold(), LockTTL: cfg.GetScoringLockTTL()},
	)

	summary, err := recalculator.Recalculate(ctx)
	if errors.Is(err, scoring.ErrRunInProgress) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(1)
	}
	log.Info("recalculation complete", "rescored", summary.Rescored, "duration", summary.Duration.String())
}
