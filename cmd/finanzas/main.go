package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"finanzas/internal/backup"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	"finanzas/internal/identity"
	"finanzas/internal/ledger"
	applog "finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	loc, _ := cfg.Location() // validated above

	ctx := context.Background()
	res := cli.InitStore(ctx, logger, cfg)

	opts := []ledger.Option{
		ledger.WithTimeout(cfg.StoreTimeout),
		ledger.WithLocation(loc),
	}
	if cfg.SnapshotsEnabled() {
		snap, err := backup.NewS3Snapshotter(ctx, backup.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			logger.Error("Failed to initialize reset snapshots", "error", err, "bucket", cfg.S3Bucket)
			os.Exit(1)
		}
		opts = append(opts, ledger.WithSnapshotter(snap))
		logger.Info("Reset snapshots enabled", "bucket", cfg.S3Bucket)
	}

	registry := ledger.NewRegistry(res.Store, cfg.Locale, cfg.MaxSessions, cfg.SessionTTL, opts...)
	caches := cache.NewManager()
	caches.Register(registry.Cleaner())
	caches.StartCleanup(time.Minute)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Registry:     registry,
		Provider:     identity.NewProvider(res.Store),
		Tokens:       identity.NewTokens([]byte(cfg.JWTSecret), cfg.TokenTTL),
		Store:        res.Store,
		Logger:       logger,
		Location:     loc,
		RateLimit:    ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		SecureCookie: cfg.SecureCookies,
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Store cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", res.Publishing,
		"snapshots", cfg.SnapshotsEnabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
