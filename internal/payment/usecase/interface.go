// Package usecase defines the interfaces and implementations for payment
// processing business logic. Use cases orchestrate the payment state machine,
// the order state machine and the outbox so that every state change and its
// outgoing events commit atomically.
package usecase

import (
	"context"

	"github.com/google/uuid"

	orderDomain "github.com/allisson/commerce/internal/order/domain"
	paymentDomain "github.com/allisson/commerce/internal/payment/domain"
)

// PaymentRepository defines the interface for Payment persistence operations.
// Update is conditioned on the loaded version and returns ErrConcurrencyConflict
// when another writer got there first.
type PaymentRepository interface {
	Create(ctx context.Context, payment *paymentDomain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error)
	GetByProviderRef(ctx context.Context, provider string, externalReference string) (*paymentDomain.Payment, error)
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]*paymentDomain.Payment, error)
	Update(ctx context.Context, payment *paymentDomain.Payment) error
}

// OrderRepository defines the order persistence operations the payment flow needs.
type OrderRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error)
	Update(ctx context.Context, order *orderDomain.Order) error
}

// CreateInput carries the fields to create a pending payment.
type CreateInput struct {
	OrderID           uuid.UUID
	UserID            *uuid.UUID
	AmountCents       int64
	Currency          string
	MethodType        string
	Provider          string
	ExternalReference *string
}

// ProcessPaymentInput carries a synchronous checkout charge request.
type ProcessPaymentInput struct {
	OrderID    uuid.UUID
	UserID     *uuid.UUID
	MethodType string
	Provider   string
	Token      string
	CustomerID *string
	Metadata   map[string]any
}

// PaymentUseCase defines the interface for payment business logic. The MarkAs
// operations are idempotent with the same evidence and update the payment and
// its order in one transaction.
type PaymentUseCase interface {
	Create(ctx context.Context, input CreateInput) (*paymentDomain.Payment, error)
	ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*paymentDomain.Payment, error)
	MarkAsSucceeded(ctx context.Context, paymentID uuid.UUID, transactionID string) (*paymentDomain.Payment, error)
	MarkAsFailed(ctx context.Context, paymentID uuid.UUID, reason string) (*paymentDomain.Payment, error)
	MarkAsRefunded(ctx context.Context, paymentID uuid.UUID, transactionID string, reason string) (*paymentDomain.Payment, error)
	MarkAsPartiallyRefunded(ctx context.Context, paymentID uuid.UUID, transactionID string, amountCents int64, reason string) (*paymentDomain.Payment, error)
	MarkAsDisputed(ctx context.Context, paymentID uuid.UUID) (*paymentDomain.Payment, error)
	GetByID(ctx context.Context, paymentID uuid.UUID) (*paymentDomain.Payment, error)
	GetByProviderRef(ctx context.Context, provider string, externalReference string) (*paymentDomain.Payment, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*paymentDomain.Payment, error)
}
