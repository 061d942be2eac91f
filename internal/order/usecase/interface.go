// Package usecase defines the interfaces and implementations for order
// management business logic. Every state change commits in one transaction with
// the outbox events and inventory adjustments it implies.
package usecase

import (
	"context"

	"github.com/google/uuid"

	orderDomain "github.com/allisson/commerce/internal/order/domain"
)

// OrderRepository defines the interface for Order persistence operations.
// Update is conditioned on the loaded version and returns ErrConcurrencyConflict
// when another writer got there first.
type OrderRepository interface {
	Create(ctx context.Context, order *orderDomain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error)
	List(ctx context.Context, limit int, offset int) ([]*orderDomain.Order, error)
	Update(ctx context.Context, order *orderDomain.Order) error
}

// InventoryAdjuster releases or restores reserved stock. It is invoked inside
// the same transactional boundary as the order mutation that triggers it, never
// as a fire-and-forget afterthought.
type InventoryAdjuster interface {
	RestoreStock(ctx context.Context, orderID uuid.UUID) error
}

// CreateInput carries the fields to create a pending order.
type CreateInput struct {
	UserID            *uuid.UUID
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
	SubtotalCents     int64
	TaxCents          int64
	ShippingCents     int64
	Currency          string
}

// OrderUseCase defines the interface for order business logic.
type OrderUseCase interface {
	Create(ctx context.Context, input CreateInput) (*orderDomain.Order, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error)
	List(ctx context.Context, limit int, offset int) ([]*orderDomain.Order, error)
	Ship(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*orderDomain.Order, error)
	Deliver(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*orderDomain.Order, error)
	Return(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error)
	Refund(ctx context.Context, orderID uuid.UUID, reason string) (*orderDomain.Order, error)
	PartialRefund(ctx context.Context, orderID uuid.UUID, amountCents int64, reason string) (*orderDomain.Order, error)
}
