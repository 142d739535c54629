// Code generated manually. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"context"
	"fmt"

	"github.com/sevigo/countpkg/internal/app"
	"github.com/sevigo/countpkg/internal/config"
	"github.com/sevigo/countpkg/internal/logger"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(ctx context.Context, configPath string) (*app.App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	slogLogger := logger.New(cfg.Logging, nil)

	application, cleanup, err := app.NewApp(ctx, cfg, slogLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return application, cleanup, nil
}
