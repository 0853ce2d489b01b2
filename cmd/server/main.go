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

	"github.com/getsentry/sentry-go"

	"github.com/guitarbuddy/backend/internal/broker"
	"github.com/guitarbuddy/backend/internal/config"
	"github.com/guitarbuddy/backend/internal/database"
	"github.com/guitarbuddy/backend/internal/db"
	"github.com/guitarbuddy/backend/internal/live"
	"github.com/guitarbuddy/backend/internal/logging"
	"github.com/guitarbuddy/backend/internal/router"
	"github.com/guitarbuddy/backend/internal/services"
	sentryscrub "github.com/guitarbuddy/backend/internal/sentry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg := config.Load()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:                   cfg.SentryDSN,
			Environment:           cfg.SentryEnvironment,
			BeforeSend:            sentryscrub.ScrubEvent,
			BeforeSendTransaction: sentryscrub.ScrubTransaction,
		}); err != nil {
			slog.Error("failed to initialize sentry", slog.String("error", err.Error()))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize database
	sqlDB, err := database.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(sqlDB); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize queries
	queries := db.New(sqlDB)

	// Live performance sessions
	lobby := broker.New()
	coord := live.NewCoordinator(live.Options{
		SendBuffer:        cfg.LiveSendBuffer,
		MessagesPerSecond: cfg.LiveMessagesPerSecond,
		IdleTimeout:       cfg.LiveIdleTimeout,
		PersistTimeout:    cfg.LivePersistTimeout,
		Persister:         live.NewQueriesPersister(queries),
		Notifier:          lobby,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go coord.RunReaper(ctx, 0)

	// Create router
	r := router.New(router.Deps{
		Config:      cfg,
		Queries:     queries,
		AuthService: services.NewAuthService(cfg.JWTSecret, cfg.TokenDuration),
		Coordinator: coord,
		Broker:      lobby,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", slog.String("addr", srv.Addr), slog.String("env", cfg.AppEnv))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Live sessions end first so followers are told before sockets drop.
	if err := coord.Shutdown(shutdownCtx); err != nil {
		slog.Warn("live coordinator shutdown incomplete", slog.String("error", err.Error()))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", slog.String("error", err.Error()))
	}
}
