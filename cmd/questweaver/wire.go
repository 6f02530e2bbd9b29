//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/questweaver/internal/config"
)

func initializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, func(), error) {
	wire.Build(
		provideRoller,
		provideStorage,
		providePersister,
		provideNarrator,
		provideResilient,
		provideSeed,
		provideSessions,
		provideRouter,
		provideHTTPService,
		newApp,
	)
	return nil, nil, nil
}
