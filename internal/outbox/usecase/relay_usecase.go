// Package usecase implements the outbox relay: the background loop that claims
// due messages and fans them out to sinks with at-least-once delivery.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/commerce/internal/database"
	"github.com/allisson/commerce/internal/outbox/domain"
)

// cleanupInterval is how often the relay prunes processed messages past the
// retention window.
const cleanupInterval = time.Hour

// Config holds outbox relay configuration
type Config struct {
	Interval    time.Duration
	BatchSize   int
	MaxRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Retention   time.Duration
}

// MessageRepository defines outbox message repository operations
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ClaimBatch(ctx context.Context, limit int, now time.Time) ([]*domain.Message, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, msg *domain.Message) error
	DeleteProcessedOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Dispatcher routes a claimed message to the sink registered for its event type.
// Delivery is at-least-once: a crash between dispatch and mark-processed makes the
// message re-claimable, so every sink handler must be idempotent.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *domain.Message) error
}

// UseCase defines the interface for the outbox relay
type UseCase interface {
	Start(ctx context.Context) error
	ProcessMessages(ctx context.Context) error
	CleanupProcessed(ctx context.Context) (int64, error)
}

// RelayUseCase claims pending outbox messages and dispatches them to sinks
type RelayUseCase struct {
	config     Config
	txManager  database.TxManager
	outboxRepo MessageRepository
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewRelayUseCase creates a new RelayUseCase
func NewRelayUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo MessageRepository,
	dispatcher Dispatcher,
	logger *slog.Logger,
) *RelayUseCase {
	return &RelayUseCase{
		config:     config,
		txManager:  txManager,
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Start runs the dispatch loop and the retention cleanup loop until the
// context is cancelled.
func (uc *RelayUseCase) Start(ctx context.Context) error {
	if uc.logger != nil {
		uc.logger.Info("starting outbox relay",
			slog.Duration("interval", uc.config.Interval),
			slog.Int("batch_size", uc.config.BatchSize),
		)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return uc.runDispatchLoop(ctx) })
	g.Go(func() error { return uc.runCleanupLoop(ctx) })
	return g.Wait()
}

// runDispatchLoop claims and dispatches pending messages on every tick. A batch
// failure is logged and retried on the next tick, never fatal to the loop.
func (uc *RelayUseCase) runDispatchLoop(ctx context.Context) error {
	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if uc.logger != nil {
				uc.logger.Info("stopping outbox relay")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessMessages(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to process outbox batch", slog.Any("error", err))
				}
			}
		}
	}
}

// runCleanupLoop periodically prunes processed messages past retention so the
// outbox table does not grow without bound between manual cleanups.
func (uc *RelayUseCase) runCleanupLoop(ctx context.Context) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := uc.CleanupProcessed(ctx); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to clean up processed outbox messages", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessMessages claims one batch inside a transaction and dispatches each message.
// The claim's row locks double as the multi-worker lease: they are held until the
// batch commits, so a second relay instance skips these rows entirely. A single
// message failure is recorded via MarkFailed and never aborts the batch.
func (uc *RelayUseCase) ProcessMessages(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		messages, err := uc.outboxRepo.ClaimBatch(ctx, uc.config.BatchSize, now)
		if err != nil {
			return err
		}

		if len(messages) == 0 {
			return nil
		}

		if uc.logger != nil {
			uc.logger.Info("processing outbox batch", slog.Int("count", len(messages)))
		}

		for _, msg := range messages {
			if err := uc.dispatcher.Dispatch(ctx, msg); err != nil {
				if uc.logger != nil {
					uc.logger.Error("failed to dispatch outbox message",
						slog.String("message_id", msg.ID.String()),
						slog.String("event_type", msg.EventType),
						slog.Int("retries", msg.Retries),
						slog.Any("error", err),
					)
				}

				msg.RecordFailure(err.Error(), now, uc.config.BackoffBase, uc.config.BackoffMax, uc.config.MaxRetries)

				if msg.Status == domain.MessageStatusFailed && uc.logger != nil {
					uc.logger.Error("outbox message exhausted retry budget, parked for inspection",
						slog.String("message_id", msg.ID.String()),
						slog.String("event_type", msg.EventType),
					)
				}

				if err := uc.outboxRepo.MarkFailed(ctx, msg); err != nil {
					return err
				}
				continue
			}

			if err := uc.outboxRepo.MarkProcessed(ctx, msg.ID); err != nil {
				return err
			}
		}

		return nil
	})
}

// CleanupProcessed deletes processed messages past the retention window and
// returns the number deleted.
func (uc *RelayUseCase) CleanupProcessed(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-uc.config.Retention)

	count, err := uc.outboxRepo.DeleteProcessedOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if count > 0 && uc.logger != nil {
		uc.logger.Info("cleaned up processed outbox messages",
			slog.Int64("count", count),
			slog.Time("cutoff", cutoff),
		)
	}

	return count, nil
}
