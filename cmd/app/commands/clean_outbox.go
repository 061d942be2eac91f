package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	outboxUseCase "github.com/allisson/commerce/internal/outbox/usecase"
)

// RunCleanOutbox deletes processed outbox messages older than the configured
// retention window. Supports text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunCleanOutbox(
	ctx context.Context,
	relayUseCase outboxUseCase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	logger.Info("cleaning processed outbox messages")

	count, err := relayUseCase.CleanupProcessed(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean outbox messages: %w", err)
	}

	if format == "json" {
		outputCleanOutboxJSON(writer, count)
	} else {
		outputCleanOutboxText(writer, count)
	}

	logger.Info("cleanup completed", slog.Int64("count", count))

	return nil
}

// outputCleanOutboxText outputs the result in human-readable text format.
func outputCleanOutboxText(writer io.Writer, count int64) {
	fmt.Fprintf(writer, "Successfully deleted %d processed outbox message(s)\n", count)
}

// outputCleanOutboxJSON outputs the result in JSON format for machine consumption.
func outputCleanOutboxJSON(writer io.Writer, count int64) {
	result := map[string]interface{}{
		"count": count,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(writer, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(writer, string(jsonBytes))
}
