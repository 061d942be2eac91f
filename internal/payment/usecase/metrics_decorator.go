package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/metrics"
	paymentDomain "github.com/allisson/commerce/internal/payment/domain"
)

// paymentUseCaseWithMetrics decorates PaymentUseCase with metrics instrumentation.
type paymentUseCaseWithMetrics struct {
	next    PaymentUseCase
	metrics metrics.BusinessMetrics
}

// NewPaymentUseCaseWithMetrics wraps a PaymentUseCase with metrics recording.
func NewPaymentUseCaseWithMetrics(useCase PaymentUseCase, m metrics.BusinessMetrics) PaymentUseCase {
	return &paymentUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (p *paymentUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	p.metrics.RecordOperation(ctx, "payments", operation, status)
	p.metrics.RecordDuration(ctx, "payments", operation, time.Since(start), status)
}

// Create records metrics for payment creation.
func (p *paymentUseCaseWithMetrics) Create(ctx context.Context, input CreateInput) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.Create(ctx, input)
	p.record(ctx, "payment_create", start, err)
	return payment, err
}

// ProcessPayment records metrics for gateway charge attempts.
func (p *paymentUseCaseWithMetrics) ProcessPayment(
	ctx context.Context,
	input ProcessPaymentInput,
) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.ProcessPayment(ctx, input)
	p.record(ctx, "payment_process", start, err)
	return payment, err
}

// MarkAsSucceeded records metrics for settlement transitions.
func (p *paymentUseCaseWithMetrics) MarkAsSucceeded(
	ctx context.Context,
	paymentID uuid.UUID,
	transactionID string,
) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.MarkAsSucceeded(ctx, paymentID, transactionID)
	p.record(ctx, "payment_mark_succeeded", start, err)
	return payment, err
}

// MarkAsFailed records metrics for failure transitions.
func (p *paymentUseCaseWithMetrics) MarkAsFailed(
	ctx context.Context,
	paymentID uuid.UUID,
	reason string,
) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.MarkAsFailed(ctx, paymentID, reason)
	p.record(ctx, "payment_mark_failed", start, err)
	return payment, err
}

// MarkAsRefunded records metrics for full refund transitions.
func (p *paymentUseCaseWithMetrics) MarkAsRefunded(
	ctx context.Context,
	paymentID uuid.UUID,
	transactionID string,
	reason string,
) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.MarkAsRefunded(ctx, paymentID, transactionID, reason)
	p.record(ctx, "payment_mark_refunded", start, err)
	return payment, err
}

// MarkAsPartiallyRefunded records metrics for partial refund transitions.
func (p *paymentUseCaseWithMetrics) MarkAsPartiallyRefunded(
	ctx context.Context,
	paymentID uuid.UUID,
	transactionID string,
	amountCents int64,
	reason string,
) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.MarkAsPartiallyRefunded(ctx, paymentID, transactionID, amountCents, reason)
	p.record(ctx, "payment_mark_partially_refunded", start, err)
	return payment, err
}

// MarkAsDisputed records metrics for dispute transitions.
func (p *paymentUseCaseWithMetrics) MarkAsDisputed(
	ctx context.Context,
	paymentID uuid.UUID,
) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.MarkAsDisputed(ctx, paymentID)
	p.record(ctx, "payment_mark_disputed", start, err)
	return payment, err
}

// GetByID records metrics for payment retrieval.
func (p *paymentUseCaseWithMetrics) GetByID(ctx context.Context, paymentID uuid.UUID) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.GetByID(ctx, paymentID)
	p.record(ctx, "payment_get", start, err)
	return payment, err
}

// GetByProviderRef records metrics for provider reference lookups.
func (p *paymentUseCaseWithMetrics) GetByProviderRef(
	ctx context.Context,
	provider string,
	externalReference string,
) (*paymentDomain.Payment, error) {
	start := time.Now()
	payment, err := p.next.GetByProviderRef(ctx, provider, externalReference)
	p.record(ctx, "payment_get_by_provider_ref", start, err)
	return payment, err
}

// ListByOrder records metrics for listing an order's payments.
func (p *paymentUseCaseWithMetrics) ListByOrder(
	ctx context.Context,
	orderID uuid.UUID,
) ([]*paymentDomain.Payment, error) {
	start := time.Now()
	payments, err := p.next.ListByOrder(ctx, orderID)
	p.record(ctx, "payment_list_by_order", start, err)
	return payments, err
}
