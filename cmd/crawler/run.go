package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sevigo/countpkg/internal/wire"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a crawl and serve its read-only query API until stopped",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		application, cleanup, err := wire.InitializeApp(ctx, configPath)
		if err != nil {
			return fmt.Errorf("failed to initialize app: %w", err)
		}
		defer cleanup()

		go func() {
			if err := application.Run(ctx); err != nil {
				slog.Error("crawl stopped with error", "error", err)
				cancel()
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("received shutdown signal")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down")
		}

		if err := application.Stop(); err != nil {
			return fmt.Errorf("failed to stop application cleanly: %w", err)
		}
		return nil
	},
}
