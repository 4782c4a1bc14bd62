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

	"taskhub/internal/config"
	"taskhub/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel)

	jwtSecret, err := config.LoadOrCreateJWTSecret(cfg.DataDir)
	if err != nil {
		logger.Error("jwt secret error", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, jwtSecret, logger)
	if err != nil {
		logger.Error("server init error", "error", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("taskhub listening", "address", srv.Addr())
	if err := srv.Start(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var parsed slog.Level
	switch level {
	case "debug":
		parsed = slog.LevelDebug
	case "warn":
		parsed = slog.LevelWarn
	case "error":
		parsed = slog.LevelError
	default:
		parsed = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parsed}))
	slog.SetDefault(logger)
	return logger
}
