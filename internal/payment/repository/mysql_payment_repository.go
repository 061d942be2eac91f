package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/database"
	apperrors "github.com/allisson/commerce/internal/errors"
	"github.com/allisson/commerce/internal/payment/domain"
)

const mysqlDuplicateEntry = 1062

// MySQLPaymentRepository handles payment persistence for MySQL
type MySQLPaymentRepository struct {
	db *sql.DB
}

// NewMySQLPaymentRepository creates a new MySQLPaymentRepository
func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment; duplicate (provider, external_reference) pairs
// surface as ErrPaymentAlreadyExists.
func (r *MySQLPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	metadata, err := json.Marshal(payment.Metadata)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment metadata")
	}

	idValue, err := payment.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment id")
	}

	orderIDValue, err := payment.OrderID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment order id")
	}

	userIDValue, err := encodeNullableID(payment.UserID)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment user id")
	}

	query := `INSERT INTO payments (id, order_id, user_id, amount_cents, currency, method_type, provider,
				external_reference, transaction_id, status, error_message, processed_at, metadata, version, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err = querier.ExecContext(ctx, query, idValue, orderIDValue, userIDValue,
		payment.AmountCents, payment.Currency, payment.MethodType, payment.Provider,
		payment.ExternalReference, payment.TransactionID, payment.Status, payment.ErrorMessage,
		payment.ProcessedAt, metadata, payment.Version)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return domain.ErrPaymentAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create payment")
	}

	return nil
}

// GetByID retrieves a payment by its identifier.
func (r *MySQLPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	idValue, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode payment id")
	}

	query := selectPaymentQueryMySQL + ` WHERE id = ?`

	return r.scanPayment(querier.QueryRowContext(ctx, query, idValue))
}

// GetByProviderRef retrieves a payment by its (provider, external reference) pair.
func (r *MySQLPaymentRepository) GetByProviderRef(
	ctx context.Context,
	provider string,
	externalReference string,
) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectPaymentQueryMySQL + ` WHERE provider = ? AND external_reference = ?`

	return r.scanPayment(querier.QueryRowContext(ctx, query, provider, externalReference))
}

// ListByOrderID retrieves all payment attempts against an order, oldest first.
func (r *MySQLPaymentRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	orderIDValue, err := orderID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode payment order id")
	}

	query := selectPaymentQueryMySQL + ` WHERE order_id = ? ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, orderIDValue)
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

// Update persists the payment conditioned on the version it was loaded at;
// zero rows affected surfaces as ErrConcurrencyConflict.
func (r *MySQLPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	metadata, err := json.Marshal(payment.Metadata)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment metadata")
	}

	idValue, err := payment.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode payment id")
	}

	query := `UPDATE payments
			  SET status = ?, transaction_id = ?, error_message = ?, processed_at = ?,
				  metadata = ?, version = version + 1, updated_at = NOW()
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, payment.Status, payment.TransactionID,
		payment.ErrorMessage, payment.ProcessedAt, metadata, idValue, payment.Version)
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

const selectPaymentQueryMySQL = `SELECT id, order_id, user_id, amount_cents, currency, method_type, provider,
	external_reference, transaction_id, status, error_message, processed_at, metadata, version, created_at, updated_at
	FROM payments`

func (r *MySQLPaymentRepository) scanPayment(row *sql.Row) (*domain.Payment, error) {
	payment, err := r.scanPaymentRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (r *MySQLPaymentRepository) scanPaymentRow(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var idBytes, orderIDBytes, userIDBytes, metadata []byte

	err := row.Scan(&idBytes, &orderIDBytes, &userIDBytes, &payment.AmountCents,
		&payment.Currency, &payment.MethodType, &payment.Provider, &payment.ExternalReference,
		&payment.TransactionID, &payment.Status, &payment.ErrorMessage, &payment.ProcessedAt,
		&metadata, &payment.Version, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan payment")
	}

	if err := payment.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode payment id")
	}
	if err := payment.OrderID.UnmarshalBinary(orderIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode payment order id")
	}
	if len(userIDBytes) > 0 {
		var userID uuid.UUID
		if err := userID.UnmarshalBinary(userIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode payment user id")
		}
		payment.UserID = &userID
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &payment.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode payment metadata")
		}
	}

	return &payment, nil
}

func encodeNullableID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	return id.MarshalBinary()
}
