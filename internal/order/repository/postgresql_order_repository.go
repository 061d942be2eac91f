// Package repository provides data persistence implementations for orders.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/database"
	apperrors "github.com/allisson/commerce/internal/errors"
	"github.com/allisson/commerce/internal/order/domain"
)

// PostgreSQLOrderRepository handles order persistence for PostgreSQL
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQLOrderRepository
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order.
func (r *PostgreSQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (id, user_id, shipping_address_id, billing_address_id, subtotal_cents,
				tax_cents, shipping_cents, total_cents, currency, status, payment_status, refunded_cents,
				tracking_number, cancellation_reason, refund_reason, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, order.ID, order.UserID, order.ShippingAddressID,
		order.BillingAddressID, order.SubtotalCents, order.TaxCents, order.ShippingCents,
		order.TotalCents, order.Currency, order.Status, order.PaymentStatus, order.RefundedCents,
		order.TrackingNumber, order.CancellationReason, order.RefundReason, order.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}

	return nil
}

// GetByID retrieves an order by its identifier, returning the current version
// so the next conditioned write can be built from it.
func (r *PostgreSQLOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectOrderQuery + ` WHERE id = $1`

	return r.scanOrder(querier.QueryRowContext(ctx, query, id))
}

// List retrieves orders newest first with limit/offset pagination.
func (r *PostgreSQLOrderRepository) List(ctx context.Context, limit int, offset int) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectOrderQuery + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list orders")
	}
	defer rows.Close() //nolint:errcheck

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate orders")
	}

	return orders, nil
}

// Update persists the order conditioned on the version it was loaded at; zero
// rows affected surfaces as ErrConcurrencyConflict.
func (r *PostgreSQLOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE orders
			  SET status = $1, payment_status = $2, refunded_cents = $3, tracking_number = $4,
				  cancellation_reason = $5, refund_reason = $6, version = version + 1, updated_at = NOW()
			  WHERE id = $7 AND version = $8`

	result, err := querier.ExecContext(ctx, query, order.Status, order.PaymentStatus,
		order.RefundedCents, order.TrackingNumber, order.CancellationReason, order.RefundReason,
		order.ID, order.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update order")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check order update result")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrConcurrencyConflict, "order was modified by another writer")
	}

	order.Version++

	return nil
}

const selectOrderQuery = `SELECT id, user_id, shipping_address_id, billing_address_id, subtotal_cents,
	tax_cents, shipping_cents, total_cents, currency, status, payment_status, refunded_cents,
	tracking_number, cancellation_reason, refund_reason, version, created_at, updated_at
	FROM orders`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgreSQLOrderRepository) scanOrder(row *sql.Row) (*domain.Order, error) {
	order, err := r.scanOrderRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *PostgreSQLOrderRepository) scanOrderRow(row rowScanner) (*domain.Order, error) {
	var order domain.Order

	err := row.Scan(&order.ID, &order.UserID, &order.ShippingAddressID, &order.BillingAddressID,
		&order.SubtotalCents, &order.TaxCents, &order.ShippingCents, &order.TotalCents,
		&order.Currency, &order.Status, &order.PaymentStatus, &order.RefundedCents,
		&order.TrackingNumber, &order.CancellationReason, &order.RefundReason,
		&order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan order")
	}

	return &order, nil
}
