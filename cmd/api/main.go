package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prospect_backend/internal/adapters/storage"
	"prospect_backend/internal/events"
	apphttp "prospect_backend/internal/http"
	"prospect_backend/internal/http/router"
	"prospect_backend/internal/prospects"
	"prospect_backend/internal/prospects/assignment"
	"prospect_backend/internal/prospects/handler"
	"prospect_backend/internal/prospects/importer"
	"prospect_backend/internal/prospects/repository"
	"prospect_backend/internal/prospects/validation"
	"prospect_backend/internal/rolepool"
	"prospect_backend/internal/scheduler"
	"prospect_backend/platform/config"
	"prospect_backend/platform/db"
	"prospect_backend/platform/logger"
	"prospect_backend/platform/metrics"
	"prospect_backend/platform/phone"
	"prospect_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := cfg.RequireJWT(); err != nil {
		panic("invalid config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.GetDatabaseMigrate() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	appMetrics := metrics.New()
	events.SubscribeMetrics(eventBus, appMetrics)

	queue, closeQueue := initRecalculationQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	archive := initArchive(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	repo := repository.New(pool, cfg.GetCommitChunkSize())
	resolver := assignment.NewResolver(ownerPoolSource(cfg, pool))
	assigner := assignment.NewAssigner(resolver, repo)
	recordValidator := validation.New(validator.New(), phone.NewNormalizer(cfg.GetPhoneDefaultRegion()))
	importSvc := importer.New(recordValidator, assigner, repo, archive, eventBus, log, cfg.GetImportMaxWrites())

	prospectsModule := prospects.NewModule(importSvc, repo, queue, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Metrics:  appMetrics.Handler(),
		Modules: []apphttp.Module{
			prospectsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func ownerPoolSource(cfg config.OwnerPoolConfig, pool *pgxpool.Pool) rolepool.Source {
	if cfg.GetOwnerPoolSource() == config.OwnerPoolSourceFile {
		return rolepool.NewFileSource(cfg.GetOwnerPoolFile())
	}
	return rolepool.NewPostgresSource(pool)
}

func initRecalculationQueue(cfg config.SchedulerConfig, log *logger.Logger) (handler.RecalculationQueue, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; manual recalculation trigger disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initArchive(ctx context.Context, cfg storage.Config, log *logger.Logger) storage.ImportArchive {
	if !cfg.IsMinIOEnabled() {
		log.Info("MINIO_ENDPOINT not configured; import payloads are not archived")
		return storage.NoopArchive{}
	}

	archive, err := storage.NewMinIOArchive(cfg)
	if err != nil {
		log.Error("failed to initialize import archive", "error", err)
		panic("failed to initialize import archive: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure imports bucket", 5, 2*time.Second, func() error {
		return archive.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketImports())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("import archive initialized", "bucket", cfg.GetMinioBucketImports())
	return archive
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
