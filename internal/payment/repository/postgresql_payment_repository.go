// Package repository provides data persistence implementations for payments.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/commerce/internal/database"
	apperrors "github.com/allisson/commerce/internal/errors"
	"github.com/allisson/commerce/internal/payment/domain"
)

const pgUniqueViolation = "23505"

// PostgreSQLPaymentRepository handles payment persistence for PostgreSQL
type PostgreSQLPaymentRepository struct {
	db *sql.DB
}

// NewPostgreSQLPaymentRepository creates a new PostgreSQLPaymentRepository
func NewPostgreSQLPaymentRepository(db *sql.DB) *PostgreSQLPaymentRepository {
	return &PostgreSQLPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment. The partial unique index on
// (provider, external_reference) surfaces duplicates as ErrPaymentAlreadyExists.
func (r *PostgreSQLPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	metadata, err := json.Marshal(payment.Metadata)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment metadata")
	}

	query := `INSERT INTO payments (id, order_id, user_id, amount_cents, currency, method_type, provider,
				external_reference, transaction_id, status, error_message, processed_at, metadata, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())`

	_, err = querier.ExecContext(ctx, query, payment.ID, payment.OrderID, payment.UserID,
		payment.AmountCents, payment.Currency, payment.MethodType, payment.Provider,
		payment.ExternalReference, payment.TransactionID, payment.Status, payment.ErrorMessage,
		payment.ProcessedAt, metadata, payment.Version)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return domain.ErrPaymentAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create payment")
	}

	return nil
}

// GetByID retrieves a payment by its identifier.
func (r *PostgreSQLPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectPaymentQuery + ` WHERE id = $1`

	return r.scanPayment(querier.QueryRowContext(ctx, query, id))
}

// GetByProviderRef retrieves a payment by its (provider, external reference) pair.
// Webhook ingestion looks payments up strictly through this path.
func (r *PostgreSQLPaymentRepository) GetByProviderRef(
	ctx context.Context,
	provider string,
	externalReference string,
) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectPaymentQuery + ` WHERE provider = $1 AND external_reference = $2`

	return r.scanPayment(querier.QueryRowContext(ctx, query, provider, externalReference))
}

// ListByOrderID retrieves all payment attempts against an order, oldest first.
func (r *PostgreSQLPaymentRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectPaymentQuery + ` WHERE order_id = $1 ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list payments")
	}
	defer rows.Close() //nolint:errcheck

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := r.scanPaymentRow(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate payments")
	}

	return payments, nil
}

// Update persists the payment conditioned on the version it was loaded at. Zero
// rows affected means another writer got there first and surfaces as
// ErrConcurrencyConflict; the caller must reload before retrying.
func (r *PostgreSQLPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	metadata, err := json.Marshal(payment.Metadata)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment metadata")
	}

	query := `UPDATE payments
			  SET status = $1, transaction_id = $2, error_message = $3, processed_at = $4,
				  metadata = $5, version = version + 1, updated_at = NOW()
			  WHERE id = $6 AND version = $7`

	result, err := querier.ExecContext(ctx, query, payment.Status, payment.TransactionID,
		payment.ErrorMessage, payment.ProcessedAt, metadata, payment.ID, payment.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update payment")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check payment update result")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrConcurrencyConflict, "payment was modified by another writer")
	}

	payment.Version++

	return nil
}

const selectPaymentQuery = `SELECT id, order_id, user_id, amount_cents, currency, method_type, provider,
	external_reference, transaction_id, status, error_message, processed_at, metadata, version, created_at, updated_at
	FROM payments`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgreSQLPaymentRepository) scanPayment(row *sql.Row) (*domain.Payment, error) {
	payment, err := r.scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *PostgreSQLPaymentRepository) scanPaymentRow(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var metadata []byte

	err := row.Scan(&payment.ID, &payment.OrderID, &payment.UserID, &payment.AmountCents,
		&payment.Currency, &payment.MethodType, &payment.Provider, &payment.ExternalReference,
		&payment.TransactionID, &payment.Status, &payment.ErrorMessage, &payment.ProcessedAt,
		&metadata, &payment.Version, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan payment")
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &payment.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode payment metadata")
		}
	}

	return &payment, nil
}
