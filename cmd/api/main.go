package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nomad-pass/nomad_pass/internal/config"
	"github.com/nomad-pass/nomad_pass/internal/infra"
	"github.com/nomad-pass/nomad_pass/internal/logging"
	"github.com/nomad-pass/nomad_pass/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	srvDeps := server.Deps{Cfg: cfg, Logger: logger}

	if cfg.DatabaseURL != "" {
		if err := infra.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			logger.Error("run migrations", "error", err)
			os.Exit(1)
		}
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		srvDeps.DB = pool
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory registry store")
	}

	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		srvDeps.Cache = cache
	} else {
		logger.Warn("REDIS_URL not set, idempotency and event fan-out degraded")
	}

	srv, err := server.New(srvDeps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
