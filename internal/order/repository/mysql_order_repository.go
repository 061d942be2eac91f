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

// MySQLOrderRepository handles order persistence for MySQL
type MySQLOrderRepository struct {
	db *sql.DB
}

// NewMySQLOrderRepository creates a new MySQLOrderRepository
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order.
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	idValue, err := order.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode order id")
	}

	userIDValue, err := encodeNullableID(order.UserID)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode order user id")
	}

	shippingIDValue, err := order.ShippingAddressID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode order shipping address id")
	}

	billingIDValue, err := encodeNullableID(order.BillingAddressID)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode order billing address id")
	}

	query := `INSERT INTO orders (id, user_id, shipping_address_id, billing_address_id, subtotal_cents,
				tax_cents, shipping_cents, total_cents, currency, status, payment_status, refunded_cents,
				tracking_number, cancellation_reason, refund_reason, version, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err = querier.ExecContext(ctx, query, idValue, userIDValue, shippingIDValue, billingIDValue,
		order.SubtotalCents, order.TaxCents, order.ShippingCents, order.TotalCents, order.Currency,
		order.Status, order.PaymentStatus, order.RefundedCents, order.TrackingNumber,
		order.CancellationReason, order.RefundReason, order.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}

	return nil
}

// GetByID retrieves an order by its identifier.
func (r *MySQLOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	idValue, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode order id")
	}

	query := selectOrderQueryMySQL + ` WHERE id = ?`

	return r.scanOrder(querier.QueryRowContext(ctx, query, idValue))
}

// List retrieves orders newest first with limit/offset pagination.
func (r *MySQLOrderRepository) List(ctx context.Context, limit int, offset int) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := selectOrderQueryMySQL + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`

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
func (r *MySQLOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	idValue, err := order.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to encode order id")
	}

	query := `UPDATE orders
			  SET status = ?, payment_status = ?, refunded_cents = ?, tracking_number = ?,
				  cancellation_reason = ?, refund_reason = ?, version = version + 1, updated_at = NOW()
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, order.Status, order.PaymentStatus,
		order.RefundedCents, order.TrackingNumber, order.CancellationReason, order.RefundReason,
		idValue, order.Version)
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

const selectOrderQueryMySQL = `SELECT id, user_id, shipping_address_id, billing_address_id, subtotal_cents,
	tax_cents, shipping_cents, total_cents, currency, status, payment_status, refunded_cents,
	tracking_number, cancellation_reason, refund_reason, version, created_at, updated_at
	FROM orders`

func (r *MySQLOrderRepository) scanOrder(row *sql.Row) (*domain.Order, error) {
	order, err := r.scanOrderRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *MySQLOrderRepository) scanOrderRow(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var idBytes, userIDBytes, shippingIDBytes, billingIDBytes []byte

	err := row.Scan(&idBytes, &userIDBytes, &shippingIDBytes, &billingIDBytes,
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

	if err := order.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode order id")
	}
	if err := order.ShippingAddressID.UnmarshalBinary(shippingIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode order shipping address id")
	}
	if len(userIDBytes) > 0 {
		var userID uuid.UUID
		if err := userID.UnmarshalBinary(userIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode order user id")
		}
		order.UserID = &userID
	}
	if len(billingIDBytes) > 0 {
		var billingID uuid.UUID
		if err := billingID.UnmarshalBinary(billingIDBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode order billing address id")
		}
		order.BillingAddressID = &billingID
	}

	return &order, nil
}

func encodeNullableID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	return id.MarshalBinary()
}
