// Package repository provides data persistence implementations for outbox messages.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/database"
	apperrors "github.com/allisson/commerce/internal/errors"
	"github.com/allisson/commerce/internal/outbox/domain"
)

// PostgreSQLOutboxRepository handles outbox message persistence for PostgreSQL
type PostgreSQLOutboxRepository struct {
	db *sql.DB
}

// NewPostgreSQLOutboxRepository creates a new PostgreSQLOutboxRepository
func NewPostgreSQLOutboxRepository(db *sql.DB) *PostgreSQLOutboxRepository {
	return &PostgreSQLOutboxRepository{
		db: db,
	}
}

// Create inserts a new outbox message. It participates in the caller's transaction,
// which is how enqueuing stays atomic with the aggregate write that produced it.
func (r *PostgreSQLOutboxRepository) Create(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_messages (id, event_type, payload, status, retries, last_error, scheduled_at, processed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, msg.ID, msg.EventType, msg.Payload, msg.Status,
		msg.Retries, msg.LastError, msg.ScheduledAt, msg.ProcessedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox message")
	}

	return nil
}

// ClaimBatch retrieves up to limit due messages, oldest-due-first with ties broken
// by arrival order. Rows are locked with FOR UPDATE SKIP LOCKED so concurrent relay
// workers never claim the same message.
func (r *PostgreSQLOutboxRepository) ClaimBatch(
	ctx context.Context,
	limit int,
	now time.Time,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, payload, status, retries, last_error, scheduled_at, processed_at, created_at, updated_at
			  FROM outbox_messages
			  WHERE status = $1 AND scheduled_at <= $2
			  ORDER BY scheduled_at ASC, created_at ASC
			  LIMIT $3
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.MessageStatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim outbox batch")
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message

		err := rows.Scan(&msg.ID, &msg.EventType, &msg.Payload, &msg.Status,
			&msg.Retries, &msg.LastError, &msg.ScheduledAt, &msg.ProcessedAt, &msg.CreatedAt, &msg.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox message")
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox batch")
	}

	return messages, nil
}

// MarkProcessed records a successful delivery. Idempotent: reapplying to an already
// processed message keeps the original processed_at.
func (r *PostgreSQLOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, processed_at = COALESCE(processed_at, NOW()), last_error = NULL, updated_at = NOW()
			  WHERE id = $2`

	_, err := querier.ExecContext(ctx, query, domain.MessageStatusProcessed, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message processed")
	}

	return nil
}

// MarkFailed persists the retry bookkeeping computed on the aggregate
// (retries, last_error, next scheduled_at, possibly failed status).
func (r *PostgreSQLOutboxRepository) MarkFailed(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, retries = $2, last_error = $3, scheduled_at = $4, updated_at = NOW()
			  WHERE id = $5 AND processed_at IS NULL`

	_, err := querier.ExecContext(ctx, query, msg.Status, msg.Retries, msg.LastError, msg.ScheduledAt, msg.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message failed")
	}

	return nil
}

// DeleteProcessedOlderThan removes processed messages older than the cutoff and
// returns the number deleted. Failed messages are never deleted here.
func (r *PostgreSQLOutboxRepository) DeleteProcessedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_messages
			  WHERE status = $1 AND processed_at < $2`

	result, err := querier.ExecContext(ctx, query, domain.MessageStatusProcessed, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete processed outbox messages")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted outbox messages")
	}

	return count, nil
}
