package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/easyconduit/easyconduit/internal/bot"
	"github.com/easyconduit/easyconduit/internal/conduit"
	"github.com/easyconduit/easyconduit/internal/config"
	"github.com/easyconduit/easyconduit/internal/render"
	"github.com/easyconduit/easyconduit/internal/state"
	"github.com/easyconduit/easyconduit/internal/system"
	"github.com/easyconduit/easyconduit/internal/telegram"
)

const (
	defaultRuntimeConf = "/opt/easyconduit/state/bot_runtime.conf"
	updateScriptPath   = "/opt/easyconduit/bin/update.sh"
	restartBackoff     = 30 * time.Second
)

func main() {
	confPath := flag.String("config", defaultRuntimeConf, "path to bot runtime config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if env := os.Getenv("EASYCONDUIT_RUNTIME_CONF"); env != "" {
		*confPath = env
	}

	// A missing or incomplete runtime config is fatal: no correct
	// behavior is possible without it, so do not enter the retry loop.
	cfg, err := config.LoadRuntime(*confPath)
	if err != nil {
		logger.Error("failed to load runtime config", zap.Error(err))
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		logger.Error("failed to create state dir", zap.Error(err))
		os.Exit(1)
	}

	statePath := filepath.Join(cfg.StateDir, "bot_state.json")
	if doc := state.Load(statePath); doc.OwnerChatID == 0 {
		logger.Error("owner_chat_id missing in state file; re-run the installer",
			zap.String("state_path", statePath))
		os.Exit(1)
	}

	if cfg.PromListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.PromListen, mux); err != nil {
				logger.Warn("prometheus listener failed", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Outer supervisor: any escape from the loop that is not a shutdown
	// signal gets a fixed backoff and a clean restart with freshly
	// reloaded state.
	for {
		err := run(ctx, cfg, statePath, logger)
		if ctx.Err() != nil {
			logger.Info("shutting down")
			return
		}
		logger.Error("bot loop exited, restarting",
			zap.Error(err),
			zap.Duration("backoff", restartBackoff),
		)
		select {
		case <-time.After(restartBackoff):
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		}
	}
}

func run(ctx context.Context, cfg *config.Runtime, statePath string, logger *zap.Logger) error {
	doc := state.Load(statePath)
	if doc.OwnerChatID == 0 {
		return fmt.Errorf("owner_chat_id missing in %s", statePath)
	}

	api, err := telegram.NewClient(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}

	b := bot.New(
		cfg,
		doc,
		statePath,
		api,
		system.NewSystemdController(updateScriptPath, logger),
		conduit.NewFetcher(cfg.MetricsURL),
		render.NewDashboard(logger),
		logger,
	)

	logger.Info("bot starting",
		zap.Int64("owner_chat_id", doc.OwnerChatID),
		zap.String("metrics_url", cfg.MetricsURL),
	)
	return b.Run(ctx)
}
