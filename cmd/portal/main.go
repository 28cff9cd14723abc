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

	"github.com/thvgger/igs-portal/cmd/portal/cli"
	"github.com/thvgger/igs-portal/internal/academics"
	"github.com/thvgger/igs-portal/internal/app"
	"github.com/thvgger/igs-portal/internal/auth"
	"github.com/thvgger/igs-portal/internal/ledger"
	"github.com/thvgger/igs-portal/internal/observability"
	"github.com/thvgger/igs-portal/internal/platform/cache"
	"github.com/thvgger/igs-portal/internal/platform/db"
	"github.com/thvgger/igs-portal/internal/rbac"
	"github.com/thvgger/igs-portal/internal/shared"
	"github.com/thvgger/igs-portal/jobs"
)

const idempotencyRetention = 24 * time.Hour

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(cfg, os.Args[2:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(pool); err != nil {
			logger.Error("apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	rbacMiddleware := rbac.NewMiddleware(logger)
	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, cfg.LoginRateLimit)

	academicsService := academics.NewService(academics.NewRepository(pool))
	academicsHandler := academics.NewHandler(logger, academicsService, rbacMiddleware)

	ledgerService := ledger.NewService(
		ledger.NewRepository(pool),
		academicsService,
		ledger.WithAuditor(shared.NewAuditLogger(pool)),
		ledger.WithBatchObserver(metrics),
		ledger.WithFeeBatchConcurrency(cfg.FeeBatchConcurrency),
		ledger.WithLogger(logger),
	)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	idempotency := shared.NewIdempotencyStore(pool)
	go sweepIdempotencyKeys(ctx, idempotency, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthService:        authService,
		AuthHandler:        authHandler,
		AccountsHandler:    auth.NewAccountsHandler(logger, authService, rbacMiddleware),
		LedgerHandler:      ledger.NewHandler(logger, ledgerService, rbacMiddleware, idempotency, jobClient),
		AcademicsHandler:   academicsHandler,
		JobHandler:         jobs.NewHandler(inspector, logger, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(rbacMiddleware),
		Metrics:            metrics,
		Readiness: map[string]app.Pinger{
			"postgres": pool,
			"redis":    cache.Pinger{Client: redisClient},
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func sweepIdempotencyKeys(ctx context.Context, store *shared.IdempotencyStore, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
				logger.Warn("idempotency cleanup", slog.Any("error", err))
			}
		}
	}
}

func runJobsCommand(cfg *app.Config, args []string) int {
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			slog.Default().Warn("jobs cli close", slog.Any("error", err))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return cli.Run(ctx, jobsCLI, args, os.Stdout, os.Stderr)
}
