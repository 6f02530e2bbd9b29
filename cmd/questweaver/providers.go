package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/api"
	"github.com/cory-johannsen/questweaver/internal/config"
	"github.com/cory-johannsen/questweaver/internal/game/dice"
	"github.com/cory-johannsen/questweaver/internal/game/seed"
	"github.com/cory-johannsen/questweaver/internal/game/session"
	"github.com/cory-johannsen/questweaver/internal/game/state"
	"github.com/cory-johannsen/questweaver/internal/narrator"
	"github.com/cory-johannsen/questweaver/internal/narrator/anthropic"
	"github.com/cory-johannsen/questweaver/internal/narrator/gemini"
	"github.com/cory-johannsen/questweaver/internal/narrator/offline"
	"github.com/cory-johannsen/questweaver/internal/server"
	"github.com/cory-johannsen/questweaver/internal/storage"
	"github.com/cory-johannsen/questweaver/internal/storage/backends"
)

// app is the assembled process.
type app struct {
	http *server.HTTPService
}

func newApp(httpSvc *server.HTTPService) *app {
	return &app{http: httpSvc}
}

// provideRoller rolls with crypto/rand unless session.dice_seed asks for a
// reproducible sequence.
func provideRoller(cfg config.Config, logger *zap.Logger) *dice.Roller {
	if seed := cfg.Session.DiceSeed; seed != 0 {
		logger.Warn("dice are seeded, rolls are reproducible", zap.Int64("dice_seed", seed))
		return dice.NewLoggedRoller(dice.NewSeededSource(seed), logger)
	}
	return dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
}

func provideStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (backends.Opened, func(), error) {
	start := time.Now()
	opened, err := backends.Open(ctx, cfg, logger)
	if err != nil {
		return backends.Opened{}, nil, err
	}
	logger.Info("storage ready",
		zap.String("backend", cfg.Storage.Backend),
		zap.Duration("elapsed", time.Since(start)),
	)
	return opened, opened.Close, nil
}

func providePersister(opened backends.Opened, cfg config.Config, logger *zap.Logger) *storage.Persister {
	return storage.NewPersister(opened.Store, cfg.Storage.Key, logger)
}

// provideNarrator builds the configured backend. A cloud provider without an
// API key falls back to the offline narrator.
func provideNarrator(ctx context.Context, cfg config.Config, roller *dice.Roller, logger *zap.Logger) (narrator.Narrator, func(), error) {
	nc := cfg.Narrator
	noop := func() {}
	provider := nc.Provider
	if provider != "offline" && nc.APIKey == "" {
		logger.Warn("no narrator api key, playing offline", zap.String("provider", provider))
		provider = "offline"
	}
	logger = logger.With(zap.String("narrator", provider))

	switch provider {
	case "offline":
		return offline.New(roller, logger), noop, nil

	case "gemini":
		gc := gemini.DefaultConfig()
		gc.APIKey = nc.APIKey
		if nc.Model != "" {
			gc.Model = nc.Model
		}
		if nc.Temperature > 0 {
			gc.Temperature = float32(nc.Temperature)
		}
		if nc.MaxTokens > 0 {
			gc.MaxTokens = int32(nc.MaxTokens)
		}
		if nc.HistoryWindow > 0 {
			gc.HistoryWindow = nc.HistoryWindow
		}
		n, err := gemini.New(ctx, gc, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gemini narrator: %w", err)
		}
		logger.Info("narrator ready", zap.String("model", gc.Model))
		return n, func() {
			if err := n.Close(); err != nil {
				logger.Warn("closing gemini client", zap.Error(err))
			}
		}, nil

	case "anthropic":
		ac := anthropic.Config{
			APIKey:        nc.APIKey,
			Model:         nc.Model,
			Temperature:   nc.Temperature,
			MaxTokens:     int64(nc.MaxTokens),
			HistoryWindow: nc.HistoryWindow,
		}
		if ac.Model == "" {
			ac.Model = anthropic.DefaultModel
		}
		n, err := anthropic.New(ac, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating anthropic narrator: %w", err)
		}
		logger.Info("narrator ready", zap.String("model", ac.Model))
		return n, noop, nil
	}
	return nil, nil, fmt.Errorf("unknown narrator provider %q", provider)
}

// provideSeed returns the scenario loader: the configured file, or the
// built-in adventure.
func provideSeed(cfg config.Config, logger *zap.Logger) (session.SeedFunc, error) {
	path := cfg.Session.Scenario
	if path == "" {
		return seed.Default, nil
	}
	sc, err := seed.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("custom scenario loaded", zap.String("path", path))
	return func() (state.GameState, error) { return sc.State(time.Now()), nil }, nil
}

// provideResilient degrades backend failures to flavor text for both
// sessions and the stateless narration route.
func provideResilient(n narrator.Narrator, logger *zap.Logger) *narrator.Resilient {
	return narrator.NewResilient(n, logger)
}

func provideSessions(n *narrator.Resilient, roller *dice.Roller, persister *storage.Persister, seedFn session.SeedFunc, cfg config.Config, logger *zap.Logger) (*session.Manager, func()) {
	m := session.NewManager(
		n,
		roller,
		persister,
		seedFn,
		session.Options{
			EnemyTurnDelay:      cfg.Session.EnemyTurnDelay,
			EnemyAttackModifier: cfg.Session.EnemyAttackModifier,
		},
		logger,
	)
	return m, m.Shutdown
}

func provideRouter(sessions *session.Manager, n *narrator.Resilient, opened backends.Opened, cfg config.Config, logger *zap.Logger) *api.Router {
	return api.NewRouter(sessions, n, api.Options{
		NarrationTimeout: cfg.Narrator.Timeout,
		Health:           api.HealthCheck(opened.Health),
	}, logger)
}

func provideHTTPService(router *api.Router, cfg config.Config, logger *zap.Logger) *server.HTTPService {
	return server.NewHTTPService(cfg.Server, router.Handler(), logger)
}
