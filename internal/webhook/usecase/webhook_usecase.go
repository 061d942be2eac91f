// Package usecase implements webhook ingestion: verifying inbound provider
// callbacks and routing them to the payment and order state machines. Gateways
// deliver events at-least-once and out of order, so every path through here must
// be idempotent and must never regress an aggregate to an older state.
package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	apperrors "github.com/allisson/commerce/internal/errors"
	orderDomain "github.com/allisson/commerce/internal/order/domain"
	paymentDomain "github.com/allisson/commerce/internal/payment/domain"
	"github.com/allisson/commerce/internal/payment/gateway"
	paymentUseCase "github.com/allisson/commerce/internal/payment/usecase"
)

// Provider event names this system reacts to.
const (
	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"
	eventPaymentCanceled  = "payment_intent.canceled"
	eventChargeRefunded   = "charge.refunded"
	eventDisputeCreated   = "charge.dispute.created"
	eventSetupSucceeded   = "setup_intent.succeeded"
	eventSetupCanceled    = "setup_intent.canceled"
)

// Input carries one raw inbound webhook request.
type Input struct {
	Provider   string
	RawPayload []byte
	Signature  string
	Headers    map[string]string
}

// Result reports what ingestion did with the event. Handled is false for
// success-without-action outcomes: unknown event types, events for payments this
// system has no record of, and regressive events against a more advanced state.
type Result struct {
	Handled   bool
	EventType string
}

// WebhookUseCase defines the interface for webhook ingestion.
type WebhookUseCase interface {
	HandleWebhook(ctx context.Context, input Input) (*Result, error)
}

// OrderReader loads the order a refund event reconciles against.
type OrderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*orderDomain.Order, error)
}

// webhookUseCase implements WebhookUseCase.
type webhookUseCase struct {
	gatewayClient gateway.Client
	payments      paymentUseCase.PaymentUseCase
	orders        OrderReader
	logger        *slog.Logger
}

// NewWebhookUseCase creates a new webhook use case.
func NewWebhookUseCase(
	gatewayClient gateway.Client,
	payments paymentUseCase.PaymentUseCase,
	orders OrderReader,
	logger *slog.Logger,
) WebhookUseCase {
	return &webhookUseCase{
		gatewayClient: gatewayClient,
		payments:      payments,
		orders:        orders,
		logger:        logger,
	}
}

// HandleWebhook verifies the payload with the gateway, looks the payment up by
// (provider, external reference) and applies the matching state transition. A
// missing payment is logged and answered as success so the provider does not
// retry events this system has no record for. One reload-and-reapply pass covers
// a write that lost against a concurrent writer.
func (u *webhookUseCase) HandleWebhook(ctx context.Context, input Input) (*Result, error) {
	event, err := u.gatewayClient.ProcessWebhook(ctx, gateway.ProcessWebhookRequest{
		Provider:   input.Provider,
		RawPayload: input.RawPayload,
		Signature:  input.Signature,
		Headers:    input.Headers,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrGateway, "webhook verification failed: "+err.Error())
	}

	result, err := u.applyEvent(ctx, input.Provider, event)
	if apperrors.Is(err, apperrors.ErrConcurrencyConflict) {
		// The state machine operations reload fresh state and re-validate their
		// guards internally, so a single reapply is safe; never blindly overwrite.
		result, err = u.applyEvent(ctx, input.Provider, event)
	}
	return result, err
}

func (u *webhookUseCase) applyEvent(
	ctx context.Context,
	provider string,
	event *gateway.WebhookEvent,
) (*Result, error) {
	switch event.EventType {
	case eventPaymentSucceeded:
		return u.handlePaymentSucceeded(ctx, provider, event)
	case eventPaymentFailed, eventPaymentCanceled:
		return u.handlePaymentFailed(ctx, provider, event)
	case eventChargeRefunded:
		return u.handleRefund(ctx, provider, event)
	case eventDisputeCreated:
		return u.handleDispute(ctx, provider, event)
	case eventSetupSucceeded, eventSetupCanceled:
		// Payment-method setup events carry no payment state; acknowledged only.
		return &Result{Handled: false, EventType: event.EventType}, nil
	default:
		if u.logger != nil {
			u.logger.Info("ignoring unhandled webhook event type",
				slog.String("provider", provider),
				slog.String("event_type", event.EventType),
			)
		}
		return &Result{Handled: false, EventType: event.EventType}, nil
	}
}

// lookupPayment finds the payment a provider event refers to. A nil payment with
// a nil error means success-without-action.
func (u *webhookUseCase) lookupPayment(
	ctx context.Context,
	provider string,
	event *gateway.WebhookEvent,
) (*paymentDomain.Payment, error) {
	payment, err := u.payments.GetByProviderRef(ctx, provider, event.TransactionID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			if u.logger != nil {
				u.logger.Info("webhook event for unknown payment, acknowledging without action",
					slog.String("provider", provider),
					slog.String("event_type", event.EventType),
					slog.String("external_reference", event.TransactionID),
				)
			}
			return nil, nil
		}
		return nil, err
	}
	return payment, nil
}

func (u *webhookUseCase) handlePaymentSucceeded(
	ctx context.Context,
	provider string,
	event *gateway.WebhookEvent,
) (*Result, error) {
	payment, err := u.lookupPayment(ctx, provider, event)
	if err != nil || payment == nil {
		return &Result{Handled: false, EventType: event.EventType}, err
	}

	if payment.Status.Rank() > paymentDomain.StatusSucceeded.Rank() {
		return u.skipRegressive(payment, event), nil
	}

	transactionID := stringField(event.EventData, "transaction_id", event.TransactionID)

	if _, err := u.payments.MarkAsSucceeded(ctx, payment.ID, transactionID); err != nil {
		return nil, err
	}
	return &Result{Handled: true, EventType: event.EventType}, nil
}

func (u *webhookUseCase) handlePaymentFailed(
	ctx context.Context,
	provider string,
	event *gateway.WebhookEvent,
) (*Result, error) {
	payment, err := u.lookupPayment(ctx, provider, event)
	if err != nil || payment == nil {
		return &Result{Handled: false, EventType: event.EventType}, err
	}

	// A failure event arriving after the payment already succeeded reports a
	// stale view; the most advanced state wins.
	if payment.Status.Rank() >= paymentDomain.StatusSucceeded.Rank() {
		return u.skipRegressive(payment, event), nil
	}

	reason := stringField(event.EventData, "failure_reason", "payment failed at provider")

	if _, err := u.payments.MarkAsFailed(ctx, payment.ID, reason); err != nil {
		return nil, err
	}
	return &Result{Handled: true, EventType: event.EventType}, nil
}

// handleRefund reconciles the provider's refunded minor-unit amount against the
// payment and the order's refund ledger. Providers report amount_refunded as a
// running total across all refunds on the charge, not a per-event delta, so only
// the difference against the order's already-recorded RefundedCents is applied;
// a total at or below the ledger is a duplicate or stale event. A total covering
// the payment amount, or an unparseable one, is a full refund: when in doubt
// this fails closed toward the larger corrective action rather than leaving the
// order un-refunded.
func (u *webhookUseCase) handleRefund(
	ctx context.Context,
	provider string,
	event *gateway.WebhookEvent,
) (*Result, error) {
	payment, err := u.lookupPayment(ctx, provider, event)
	if err != nil || payment == nil {
		return &Result{Handled: false, EventType: event.EventType}, err
	}

	if payment.Status == paymentDomain.StatusRefunded || payment.Status == paymentDomain.StatusDisputed {
		return u.skipRegressive(payment, event), nil
	}

	transactionID := stringField(event.EventData, "refund_id", event.TransactionID)
	reason := stringField(event.EventData, "reason", "refund issued by provider")

	amountRefunded, ok := amountField(event.EventData, "amount_refunded")
	if !ok || amountRefunded >= payment.AmountCents {
		if _, err := u.payments.MarkAsRefunded(ctx, payment.ID, transactionID, reason); err != nil {
			return nil, err
		}
		return &Result{Handled: true, EventType: event.EventType}, nil
	}

	order, err := u.orders.GetByID(ctx, payment.OrderID)
	if err != nil {
		return nil, err
	}
	if amountRefunded <= order.RefundedCents {
		return u.skipRegressive(payment, event), nil
	}

	delta := amountRefunded - order.RefundedCents
	if _, err := u.payments.MarkAsPartiallyRefunded(ctx, payment.ID, transactionID, delta, reason); err != nil {
		return nil, err
	}
	return &Result{Handled: true, EventType: event.EventType}, nil
}

func (u *webhookUseCase) handleDispute(
	ctx context.Context,
	provider string,
	event *gateway.WebhookEvent,
) (*Result, error) {
	payment, err := u.lookupPayment(ctx, provider, event)
	if err != nil || payment == nil {
		return &Result{Handled: false, EventType: event.EventType}, err
	}

	if _, err := u.payments.MarkAsDisputed(ctx, payment.ID); err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidTransition) {
			// Disputes against non-settled payments carry no actionable state here.
			return u.skipRegressive(payment, event), nil
		}
		return nil, err
	}
	return &Result{Handled: true, EventType: event.EventType}, nil
}

func (u *webhookUseCase) skipRegressive(payment *paymentDomain.Payment, event *gateway.WebhookEvent) *Result {
	if u.logger != nil {
		u.logger.Info("ignoring webhook event older than current payment state",
			slog.String("payment_id", payment.ID.String()),
			slog.String("payment_status", string(payment.Status)),
			slog.String("event_type", event.EventType),
		)
	}
	return &Result{Handled: false, EventType: event.EventType}
}

// stringField reads a string out of loosely typed event data with a fallback.
func stringField(data map[string]any, key string, fallback string) string {
	if value, ok := data[key].(string); ok && value != "" {
		return value
	}
	return fallback
}

// amountField reads a minor-unit amount out of loosely typed event data. JSON
// numbers arrive as float64; some providers send stringified integers.
func amountField(data map[string]any, key string) (int64, bool) {
	switch value := data[key].(type) {
	case float64:
		if value < 0 {
			return 0, false
		}
		return int64(value), true
	case int64:
		if value < 0 {
			return 0, false
		}
		return value, true
	case string:
		amount, err := strconv.ParseInt(value, 10, 64)
		if err != nil || amount < 0 {
			return 0, false
		}
		return amount, true
	default:
		return 0, false
	}
}
