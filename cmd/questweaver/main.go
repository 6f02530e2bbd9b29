// Package main provides the QuestWeaver server binary: the narration API,
// play sessions and their WebSocket feed over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/config"
	"github.com/cory-johannsen/questweaver/internal/observability"
	"github.com/cory-johannsen/questweaver/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty uses defaults and environment only")
	scenario := flag.String("scenario", "", "path to a scenario YAML file replacing the built-in adventure")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *scenario != "" {
		cfg.Session.Scenario = *scenario
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	a, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("assembling server", zap.Error(err))
	}
	if err := a.http.Listen(); err != nil {
		cleanup()
		logger.Fatal("binding http listener", zap.String("addr", cfg.Server.Addr()), zap.Error(err))
	}

	lc := server.NewLifecycle(logger)
	lc.Add("http", a.http)
	lc.OnShutdown("dependencies", cleanup)

	logger.Info("questweaver ready",
		zap.String("addr", a.http.Addr()),
		zap.String("narrator", cfg.Narrator.Provider),
		zap.String("storage", cfg.Storage.Backend),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lc.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
