package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/commerce/internal/app"
	"github.com/allisson/commerce/internal/config"
)

// RunRelay starts the outbox relay worker with graceful shutdown support.
// The relay polls the outbox table, dispatches claimed messages to their sinks,
// and periodically removes processed messages past the retention window. Blocks
// until receiving SIGINT/SIGTERM.
func RunRelay(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting outbox relay", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get relay use case from container (this initializes all dependencies)
	relayUseCase, err := container.RelayUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize relay use case: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := relayUseCase.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("relay error: %w", err)
	}

	logger.Info("outbox relay stopped")
	return nil
}
