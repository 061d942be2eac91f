package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogInventoryAdjuster is a stand-in inventory adjuster that only logs. The real
// adjuster lives in the inventory service; this keeps the transactional contract
// exercised without it.
type LogInventoryAdjuster struct {
	logger *slog.Logger
}

// NewLogInventoryAdjuster creates a log-backed inventory adjuster.
func NewLogInventoryAdjuster(logger *slog.Logger) *LogInventoryAdjuster {
	return &LogInventoryAdjuster{logger: logger}
}

// RestoreStock logs the stock restoration instead of performing it.
func (a *LogInventoryAdjuster) RestoreStock(ctx context.Context, orderID uuid.UUID) error {
	if a.logger != nil {
		a.logger.Info("reserved stock restored", slog.String("order_id", orderID.String()))
	}
	return nil
}
