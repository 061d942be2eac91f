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

// MySQLOutboxRepository handles outbox message persistence for MySQL
type MySQLOutboxRepository struct {
	db *sql.DB
}

// NewMySQLOutboxRepository creates a new MySQLOutboxRepository
func NewMySQLOutboxRepository(db *sql.DB) *MySQLOutboxRepository {
	return &MySQLOutboxRepository{
		db: db,
	}
}

// Create inserts a new outbox message within the caller's transaction.
func (r *MySQLOutboxRepository) Create(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_messages (id, event_type, payload, status, retries, last_error, scheduled_at, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	idValue, err := msg.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode outbox message id")
	}

	_, err = querier.ExecContext(ctx, query, idValue, msg.EventType, msg.Payload, msg.Status,
		msg.Retries, msg.LastError, msg.ScheduledAt, msg.ProcessedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox message")
	}

	return nil
}

// ClaimBatch retrieves up to limit due messages oldest-due-first. MySQL 8 supports
// FOR UPDATE SKIP LOCKED with the same concurrent-claim semantics as PostgreSQL.
func (r *MySQLOutboxRepository) ClaimBatch(
	ctx context.Context,
	limit int,
	now time.Time,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, event_type, payload, status, retries, last_error, scheduled_at, processed_at, created_at, updated_at
			  FROM outbox_messages
			  WHERE status = ? AND scheduled_at <= ?
			  ORDER BY scheduled_at ASC, created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.MessageStatusPending, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim outbox batch")
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var idBytes []byte

		err := rows.Scan(&idBytes, &msg.EventType, &msg.Payload, &msg.Status,
			&msg.Retries, &msg.LastError, &msg.ScheduledAt, &msg.ProcessedAt, &msg.CreatedAt, &msg.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox message")
		}

		if err := msg.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode outbox message id")
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox batch")
	}

	return messages, nil
}

// MarkProcessed records a successful delivery. Idempotent.
func (r *MySQLOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = ?, processed_at = COALESCE(processed_at, NOW()), last_error = NULL, updated_at = NOW()
			  WHERE id = ?`

	idValue, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode outbox message id")
	}

	_, err = querier.ExecContext(ctx, query, domain.MessageStatusProcessed, idValue)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message processed")
	}

	return nil
}

// MarkFailed persists the retry bookkeeping computed on the aggregate.
func (r *MySQLOutboxRepository) MarkFailed(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = ?, retries = ?, last_error = ?, scheduled_at = ?, updated_at = NOW()
			  WHERE id = ? AND processed_at IS NULL`

	idValue, err := msg.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode outbox message id")
	}

	_, err = querier.ExecContext(ctx, query, msg.Status, msg.Retries, msg.LastError, msg.ScheduledAt, idValue)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message failed")
	}

	return nil
}

// DeleteProcessedOlderThan removes processed messages older than the cutoff.
func (r *MySQLOutboxRepository) DeleteProcessedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM outbox_messages
			  WHERE status = ? AND processed_at < ?`

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
