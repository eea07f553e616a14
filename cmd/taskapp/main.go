package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskplanner/internal/auth"
	"taskplanner/internal/server"
	db "taskplanner/repository/db"
	inmemory "taskplanner/repository/inmemory"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := server.ReadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var users server.UserRepository
	var tasks server.TaskRepository

	dbStorage, err := db.NewStorage(cfg.DBStr, logger)
	if err != nil {
		logger.Warn("database unavailable, falling back to in-memory storage", "error", err)
		inmem := inmemory.NewStorage()
		users = inmem
		tasks = inmem
	} else {
		if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
		users = dbStorage
		tasks = dbStorage
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret)

	api := server.NewTaskAPI(cfg, users, tasks, tokens, logger)
	if api == nil {
		logger.Error("failed to initialize API")
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "port", cfg.Port)
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := api.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		} else {
			logger.Info("server stopped")
		}

	case err := <-serverErr:
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
