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
	"github.com/joho/godotenv"

	"github.com/notiongate/notiongate/internal/app"
	"github.com/notiongate/notiongate/internal/auth"
	"github.com/notiongate/notiongate/internal/content"
	jobmetrics "github.com/notiongate/notiongate/internal/jobs"
	"github.com/notiongate/notiongate/internal/observability"
	"github.com/notiongate/notiongate/internal/platform/cache"
	"github.com/notiongate/notiongate/internal/platform/db"
	"github.com/notiongate/notiongate/internal/view"
	"github.com/notiongate/notiongate/jobs"
)

func main() {
	_ = godotenv.Load()
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	metrics := observability.NewMetrics()
	notionClient := app.NewNotionClient(cfg)

	var repo auth.Repository
	switch cfg.StoreDriver {
	case app.StorePostgres:
		if err := db.Migrate(ctx, cfg.PGDSN); err != nil {
			logger.Error("migrate postgres", slog.Any("error", err))
			os.Exit(1)
		}
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		repo = auth.NewPostgresRepository(pool)
	default:
		repo = auth.NewNotionRepository(notionClient, cfg.NotionDatabaseID)
	}

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	var contentCache *content.Cache
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Warn("redis unavailable, content cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		contentCache = content.NewCache(redisClient, cfg.ContentCacheTTL)
	}

	var hook auth.SignupHook
	var jobHandler *jobs.Handler
	switch cfg.SignupHookMode {
	case app.HookQueue:
		client := jobs.NewClient(redisOpts.AsynqOpts(), jobmetrics.NewMetrics(metrics.Registerer()))
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(redisOpts.AsynqOpts())
		defer func() {
			_ = inspector.Close()
		}()
		hook = client
		jobHandler = jobs.NewHandler(inspector, logger)
	default:
		sink, err := app.NewMarketingSink(cfg, logger)
		if err != nil {
			logger.Error("init marketing sink", slog.Any("error", err))
			os.Exit(1)
		}
		hook = app.InlineSignupHook(sink)
	}

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(repo,
		auth.WithSignupHook(hook),
		auth.WithEvents(metrics),
		auth.WithLogger(logger),
	)
	cookies := auth.NewCookieManager(cfg.IsProduction())
	contentService := content.NewService(notionClient, contentCache, cfg.NotionContentPageID, logger)
	sessionToken := func(r *http.Request) string {
		return auth.ReadCookie(r, auth.SessionCookieName)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    auth.NewHandler(logger, authService, cookies),
		Guard:          auth.NewGuard(logger, authService, cookies, metrics),
		ContentHandler: content.NewHandler(logger, contentService),
		PageHandler:    content.NewPageHandler(logger, contentService, templates, authService, sessionToken),
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           app.NewMetricsRouter(metrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			slog.String("addr", cfg.AppAddr),
			slog.String("metrics_addr", cfg.MetricsAddr),
			slog.String("store", cfg.StoreDriver),
			slog.String("signup_hook", cfg.SignupHookMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Info("http server stopped")
}
