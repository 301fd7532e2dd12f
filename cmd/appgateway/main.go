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

	"github.com/micro-ha/appdriver/internal/apps"
	"github.com/micro-ha/appdriver/internal/config"
	httpapi "github.com/micro-ha/appdriver/internal/http"
	"github.com/micro-ha/appdriver/internal/http/handlers"
	"github.com/micro-ha/appdriver/internal/journal"
	"github.com/micro-ha/appdriver/internal/logging"
	"github.com/micro-ha/appdriver/internal/remote"
)

const (
	sessionTimeout = 2 * time.Minute
	pruneInterval  = time.Hour
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	httpExecutor, err := remote.NewHTTPExecutor(cfg.Remote())
	if err != nil {
		logger.Error("invalid automation server settings", "err", err)
		os.Exit(1)
	}
	httpExecutor.WithLogger(logger.With("component", "remote"))

	if cfg.SessionID == "" {
		sessionCtx, cancel := context.WithTimeout(ctx, sessionTimeout)
		_, err := httpExecutor.StartSession(sessionCtx, cfg.Capabilities)
		cancel()
		if err != nil {
			logger.Error("failed to start automation session", "err", err)
			os.Exit(1)
		}
	}
	defer closeSession(httpExecutor, logger)

	var executor remote.Executor = httpExecutor
	if cfg.Transport == config.TransportWebSocket {
		wsConfig := cfg.Remote()
		wsConfig.SessionID = httpExecutor.SessionID()
		wsExecutor, err := remote.DialWebSocket(ctx, cfg.WebSocketEndpoint(), wsConfig, logger.With("component", "remote"))
		if err != nil {
			logger.Error("failed to connect automation websocket", "err", err)
			closeSession(httpExecutor, logger)
			os.Exit(1)
		}
		defer wsExecutor.Close()
		executor = wsExecutor
	}

	var reader handlers.JournalReader
	if cfg.JournalEnabled() {
		if err := os.MkdirAll(cfg.JournalDir(), 0o755); err != nil {
			logger.Error("failed to create journal directory", "err", err)
			os.Exit(1)
		}
		repo, err := journal.New(ctx, cfg.JournalPath, logger)
		if err != nil {
			logger.Error("failed to initialize journal", "err", err)
			os.Exit(1)
		}
		defer repo.Close()
		executor = journal.NewExecutor(executor, repo, logger)
		reader = repo
		go runJournalPrune(ctx, repo, cfg.JournalRetention, logger)
	} else {
		logger.Warn("JOURNAL_PATH is empty; command journal disabled")
	}

	api := handlers.New(apps.New(executor, logger.With("component", "apps")), reader, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(api, cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", httpServer.Addr, "transport", cfg.Transport, "session_id", httpExecutor.SessionID())
	if err := httpapi.RunServer(ctx, httpServer, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated with error", "err", err)
		closeSession(httpExecutor, logger)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func closeSession(executor *remote.HTTPExecutor, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := executor.Close(ctx); err != nil {
		logger.Warn("failed to delete automation session", "err", err)
	}
}

func runJournalPrune(ctx context.Context, repo *journal.Repository, retention time.Duration, logger *slog.Logger) {
	if retention <= 0 {
		return
	}
	prune := func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := repo.Prune(pruneCtx, time.Now().Add(-retention)); err != nil {
			logger.Warn("journal prune failed", "err", err)
		}
	}
	prune()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
