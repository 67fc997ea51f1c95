package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"litfunds/internal/backend"
	"litfunds/internal/cache"
	"litfunds/internal/cli"
	"litfunds/internal/core"
	apphttp "litfunds/internal/http"
	applog "litfunds/internal/log"
	"litfunds/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(applog.ComponentApp, cfg.Level())

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentStorage).Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	snapshots := cache.NewLRUCache[[]core.Transaction](cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(snapshots)
	caches.StartCleanup(context.Background(), cfg.CacheTTL)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SecureCookies:      cfg.SecureCookies,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Ready:              res.Ping,
	},
		services.NewAuthService(res.Store, cfg.SessionTTL),
		services.NewTransactionService(res.Store, res.Publisher, snapshots),
		services.NewProfileService(res.Store),
	)
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting litfunds server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
