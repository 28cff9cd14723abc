package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/thvgger/igs-portal/internal/academics"
	"github.com/thvgger/igs-portal/internal/app"
	"github.com/thvgger/igs-portal/internal/ledger"
	"github.com/thvgger/igs-portal/internal/observability"
	"github.com/thvgger/igs-portal/internal/platform/db"
	"github.com/thvgger/igs-portal/internal/shared"
	"github.com/thvgger/igs-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	academicsService := academics.NewService(academics.NewRepository(pool))
	ledgerService := ledger.NewService(
		ledger.NewRepository(pool),
		academicsService,
		ledger.WithAuditor(shared.NewAuditLogger(pool)),
		ledger.WithBatchObserver(metrics),
		ledger.WithFeeBatchConcurrency(cfg.FeeBatchConcurrency),
		ledger.WithLogger(logger),
	)

	feeBatchJob := jobs.NewFeeBatchJob(ledgerService, logger, metrics)
	integrityJob := jobs.NewBalanceIntegrityJob(ledgerService, logger, metrics)

	integrityTask, err := jobs.NewBalanceIntegrityTask(time.Now().UTC())
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFeeBatch, Handler: feeBatchJob.Handle},
			{Type: jobs.TaskBalanceIntegrity, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCronSpec, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if addr := cfg.WorkerMetricsAddr; addr != "" {
		server := &http.Server{Addr: addr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("serving worker metrics", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = server.Close() }()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
