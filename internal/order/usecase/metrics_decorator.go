package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/metrics"
	orderDomain "github.com/allisson/commerce/internal/order/domain"
)

// orderUseCaseWithMetrics decorates OrderUseCase with metrics instrumentation.
type orderUseCaseWithMetrics struct {
	next    OrderUseCase
	metrics metrics.BusinessMetrics
}

// NewOrderUseCaseWithMetrics wraps an OrderUseCase with metrics recording.
func NewOrderUseCaseWithMetrics(useCase OrderUseCase, m metrics.BusinessMetrics) OrderUseCase {
	return &orderUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (o *orderUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	o.metrics.RecordOperation(ctx, "orders", operation, status)
	o.metrics.RecordDuration(ctx, "orders", operation, time.Since(start), status)
}

// Create records metrics for order creation.
func (o *orderUseCaseWithMetrics) Create(ctx context.Context, input CreateInput) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Create(ctx, input)
	o.record(ctx, "order_create", start, err)
	return order, err
}

// GetByID records metrics for order retrieval.
func (o *orderUseCaseWithMetrics) GetByID(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.GetByID(ctx, orderID)
	o.record(ctx, "order_get", start, err)
	return order, err
}

// List records metrics for order listing.
func (o *orderUseCaseWithMetrics) List(ctx context.Context, limit int, offset int) ([]*orderDomain.Order, error) {
	start := time.Now()
	orders, err := o.next.List(ctx, limit, offset)
	o.record(ctx, "order_list", start, err)
	return orders, err
}

// Ship records metrics for shipment transitions.
func (o *orderUseCaseWithMetrics) Ship(
	ctx context.Context,
	orderID uuid.UUID,
	trackingNumber string,
) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Ship(ctx, orderID, trackingNumber)
	o.record(ctx, "order_ship", start, err)
	return order, err
}

// Deliver records metrics for delivery transitions.
func (o *orderUseCaseWithMetrics) Deliver(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Deliver(ctx, orderID)
	o.record(ctx, "order_deliver", start, err)
	return order, err
}

// Cancel records metrics for cancellation transitions.
func (o *orderUseCaseWithMetrics) Cancel(
	ctx context.Context,
	orderID uuid.UUID,
	reason string,
) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Cancel(ctx, orderID, reason)
	o.record(ctx, "order_cancel", start, err)
	return order, err
}

// Return records metrics for return transitions.
func (o *orderUseCaseWithMetrics) Return(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Return(ctx, orderID)
	o.record(ctx, "order_return", start, err)
	return order, err
}

// Refund records metrics for full refund transitions.
func (o *orderUseCaseWithMetrics) Refund(
	ctx context.Context,
	orderID uuid.UUID,
	reason string,
) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.Refund(ctx, orderID, reason)
	o.record(ctx, "order_refund", start, err)
	return order, err
}

// PartialRefund records metrics for partial refund transitions.
func (o *orderUseCaseWithMetrics) PartialRefund(
	ctx context.Context,
	orderID uuid.UUID,
	amountCents int64,
	reason string,
) (*orderDomain.Order, error) {
	start := time.Now()
	order, err := o.next.PartialRefund(ctx, orderID, amountCents, reason)
	o.record(ctx, "order_partial_refund", start, err)
	return order, err
}
