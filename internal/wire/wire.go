//go:build wireinject
// +build wireinject

// Package wire declares countpkg's dependency graph for `go run
// github.com/google/wire/cmd/wire`; wire_gen.go is the checked-in,
// hand-maintained result (spec AMBIENT STACK), grounded on the teacher's
// internal/wire.
package wire

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/sevigo/countpkg/internal/app"
	"github.com/sevigo/countpkg/internal/config"
	"github.com/sevigo/countpkg/internal/logger"
)

// InitializeApp wires config loading, logger construction, and App
// assembly into a single entry point for cmd/crawler.
func InitializeApp(ctx context.Context, configPath string) (*app.App, func(), error) {
	wire.Build(
		provideConfig,
		provideLogger,
		app.NewApp,
	)
	return &app.App{}, nil, nil
}

func provideConfig(configPath string) (*config.Config, error) {
	return config.Load(configPath)
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Logging, nil)
}
