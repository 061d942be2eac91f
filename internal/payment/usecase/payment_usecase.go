package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/commerce/internal/database"
	apperrors "github.com/allisson/commerce/internal/errors"
	orderDomain "github.com/allisson/commerce/internal/order/domain"
	outboxDomain "github.com/allisson/commerce/internal/outbox/domain"
	outboxUseCase "github.com/allisson/commerce/internal/outbox/usecase"
	paymentDomain "github.com/allisson/commerce/internal/payment/domain"
	"github.com/allisson/commerce/internal/payment/gateway"
	appvalidation "github.com/allisson/commerce/internal/validation"

	"github.com/google/uuid"
)

// failureRecordTimeout bounds the failed-payment write when the caller's
// context is already gone.
const failureRecordTimeout = 5 * time.Second

// paymentUseCase implements the PaymentUseCase interface.
type paymentUseCase struct {
	txManager      database.TxManager
	paymentRepo    PaymentRepository
	orderRepo      OrderRepository
	outboxRepo     outboxUseCase.MessageRepository
	gatewayClient  gateway.Client
	gatewayTimeout time.Duration
	logger         *slog.Logger
}

// NewPaymentUseCase creates a new payment use case.
func NewPaymentUseCase(
	txManager database.TxManager,
	paymentRepo PaymentRepository,
	orderRepo OrderRepository,
	outboxRepo outboxUseCase.MessageRepository,
	gatewayClient gateway.Client,
	gatewayTimeout time.Duration,
	logger *slog.Logger,
) PaymentUseCase {
	return &paymentUseCase{
		txManager:      txManager,
		paymentRepo:    paymentRepo,
		orderRepo:      orderRepo,
		outboxRepo:     outboxRepo,
		gatewayClient:  gatewayClient,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
	}
}

// Create validates the input against the order and persists a pending payment
// together with its payment.created event in one transaction.
func (u *paymentUseCase) Create(ctx context.Context, input CreateInput) (*paymentDomain.Payment, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	order, err := u.orderRepo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if err := validateOrderMatch(order, input.UserID, input.Currency); err != nil {
		return nil, err
	}

	payment := paymentDomain.NewPayment(input.OrderID, input.UserID, input.AmountCents,
		input.Currency, input.MethodType, input.Provider, input.ExternalReference)

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.paymentRepo.Create(txCtx, payment); err != nil {
			return err
		}
		return u.enqueue(txCtx, paymentDomain.EventPaymentCreated, paymentEventPayload(payment))
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// ProcessPayment charges the gateway and persists the outcome. The gateway call
// happens before the transactional write, never inside it, so a hung provider
// cannot hold row locks. Every outcome, including gateway failure and unknown
// results from cancellation mid-call, leaves a persisted payment row behind.
func (u *paymentUseCase) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*paymentDomain.Payment, error) {
	order, err := u.orderRepo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	if err := validateOrderMatch(order, input.UserID, order.Currency); err != nil {
		return nil, err
	}

	payment := paymentDomain.NewPayment(input.OrderID, input.UserID, order.TotalCents,
		order.Currency, input.MethodType, input.Provider, nil)
	if input.Metadata != nil {
		payment.Metadata = paymentDomain.FromAny(input.Metadata)
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
	defer cancel()

	response, gatewayErr := u.gatewayClient.ProcessPayment(gatewayCtx, gateway.ProcessPaymentRequest{
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		MethodType:  input.MethodType,
		Provider:    input.Provider,
		Token:       input.Token,
		CustomerID:  input.CustomerID,
		Metadata:    input.Metadata,
	})

	if gatewayErr != nil {
		return u.persistGatewayFailure(ctx, payment, gatewayCtx, gatewayErr)
	}

	payment.ExternalReference = response.ExternalReference
	payment.Metadata = payment.Metadata.MergeProvider(paymentDomain.FromAny(response.Metadata))

	if err := payment.MirrorGatewayStatus(paymentDomain.Status(response.Status), response.TransactionID); err != nil {
		return nil, err
	}

	err = u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := u.paymentRepo.Create(txCtx, payment); err != nil {
			return err
		}

		if payment.Status != paymentDomain.StatusSucceeded {
			return u.enqueue(txCtx, paymentDomain.EventPaymentCreated, paymentEventPayload(payment))
		}

		// Payment success and order payment state must commit together: a
		// succeeded payment against a pending-unpaid order is a state
		// downstream fulfillment would act on incorrectly.
		if err := order.MarkAsPaid(); err != nil {
			return err
		}
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}
		if err := u.enqueue(txCtx, paymentDomain.EventPaymentSucceeded, paymentEventPayload(payment)); err != nil {
			return err
		}
		return u.enqueue(txCtx, orderDomain.EventOrderPaid, orderEventPayload(order))
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// persistGatewayFailure records a failed payment row for a gateway error so the
// attempt is visible to reconciliation and later webhook noise can be correlated.
func (u *paymentUseCase) persistGatewayFailure(
	ctx context.Context,
	payment *paymentDomain.Payment,
	gatewayCtx context.Context,
	gatewayErr error,
) (*paymentDomain.Payment, error) {
	reason := gatewayErr.Error()
	writeCtx := ctx
	if gatewayCtx.Err() != nil {
		// Outcome unknown: the call was cancelled or timed out mid-flight. Record
		// a retryable failure rather than leaving nothing behind. The caller's
		// context may itself be the cancelled one, so the write runs detached
		// from it on a clock of its own; otherwise the caller hanging up would
		// erase the only record of a charge that may have gone through.
		reason = "gateway call cancelled before completion, outcome unknown, retry safe: " + reason

		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
		defer cancel()
	}

	if err := payment.MarkAsFailed(reason); err != nil {
		return nil, err
	}

	err := u.txManager.WithTx(writeCtx, func(txCtx context.Context) error {
		if err := u.paymentRepo.Create(txCtx, payment); err != nil {
			return err
		}
		return u.enqueue(txCtx, paymentDomain.EventPaymentFailed, paymentEventPayload(payment))
	})
	if err != nil {
		return nil, err
	}

	if u.logger != nil {
		u.logger.Warn("gateway payment failed",
			slog.String("payment_id", payment.ID.String()),
			slog.String("provider", payment.Provider),
			slog.String("reason", reason),
		)
	}

	return payment, apperrors.Wrap(apperrors.ErrGateway, reason)
}

// MarkAsSucceeded settles a payment and marks its order paid in one transaction.
// Repeating with the same transaction id is a no-op success.
func (u *paymentUseCase) MarkAsSucceeded(
	ctx context.Context,
	paymentID uuid.UUID,
	transactionID string,
) (*paymentDomain.Payment, error) {
	var payment *paymentDomain.Payment

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = u.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}

		alreadySucceeded := payment.Status == paymentDomain.StatusSucceeded

		if err := payment.MarkAsSucceeded(transactionID); err != nil {
			return err
		}
		if alreadySucceeded {
			return nil
		}

		if err := u.paymentRepo.Update(txCtx, payment); err != nil {
			return err
		}

		order, err := u.orderRepo.GetByID(txCtx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := order.MarkAsPaid(); err != nil {
			return err
		}
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}

		if err := u.enqueue(txCtx, paymentDomain.EventPaymentSucceeded, paymentEventPayload(payment)); err != nil {
			return err
		}
		return u.enqueue(txCtx, orderDomain.EventOrderPaid, orderEventPayload(order))
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// MarkAsFailed records a failed payment; a still-pending order gets its payment
// status flipped to failed in the same transaction.
func (u *paymentUseCase) MarkAsFailed(
	ctx context.Context,
	paymentID uuid.UUID,
	reason string,
) (*paymentDomain.Payment, error) {
	var payment *paymentDomain.Payment

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = u.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}

		if payment.Status == paymentDomain.StatusFailed {
			return nil
		}

		if err := payment.MarkAsFailed(reason); err != nil {
			return err
		}
		if err := u.paymentRepo.Update(txCtx, payment); err != nil {
			return err
		}

		order, err := u.orderRepo.GetByID(txCtx, payment.OrderID)
		if err != nil {
			return err
		}
		if order.Status == orderDomain.StatusPending && order.PaymentStatus != orderDomain.PaymentStatusSucceeded {
			if err := order.MarkPaymentFailed(); err != nil {
				return err
			}
			if err := u.orderRepo.Update(txCtx, order); err != nil {
				return err
			}
		}

		return u.enqueue(txCtx, paymentDomain.EventPaymentFailed, paymentEventPayload(payment))
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// MarkAsRefunded fully refunds a payment and its order in one transaction.
func (u *paymentUseCase) MarkAsRefunded(
	ctx context.Context,
	paymentID uuid.UUID,
	transactionID string,
	reason string,
) (*paymentDomain.Payment, error) {
	var payment *paymentDomain.Payment

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = u.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}

		alreadyRefunded := payment.Status == paymentDomain.StatusRefunded

		if err := payment.MarkAsRefunded(transactionID); err != nil {
			return err
		}
		if alreadyRefunded {
			return nil
		}

		if err := u.paymentRepo.Update(txCtx, payment); err != nil {
			return err
		}

		order, err := u.orderRepo.GetByID(txCtx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := order.ProcessRefund(reason); err != nil {
			return err
		}
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}

		if err := u.enqueue(txCtx, paymentDomain.EventPaymentRefunded, paymentEventPayload(payment)); err != nil {
			return err
		}
		return u.enqueue(txCtx, orderDomain.EventOrderRefunded, orderEventPayload(order))
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// MarkAsPartiallyRefunded applies a partial refund to the payment and its order
// in one transaction. An amount covering the full remainder is promoted to a
// full refund by the order aggregate.
func (u *paymentUseCase) MarkAsPartiallyRefunded(
	ctx context.Context,
	paymentID uuid.UUID,
	transactionID string,
	amountCents int64,
	reason string,
) (*paymentDomain.Payment, error) {
	var payment *paymentDomain.Payment

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = u.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}

		if payment.Status == paymentDomain.StatusPartiallyRefunded &&
			payment.TransactionID != nil && *payment.TransactionID == transactionID {
			return nil
		}

		if err := payment.MarkAsPartiallyRefunded(transactionID); err != nil {
			return err
		}
		if err := u.paymentRepo.Update(txCtx, payment); err != nil {
			return err
		}

		order, err := u.orderRepo.GetByID(txCtx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := order.ProcessPartialRefund(amountCents, reason); err != nil {
			return err
		}
		if order.PaymentStatus == orderDomain.PaymentStatusRefunded {
			// The partial refund exhausted the remaining amount; the payment
			// follows the order's promotion to a full refund.
			if err := payment.MarkAsRefunded(transactionID); err != nil {
				return err
			}
			if err := u.paymentRepo.Update(txCtx, payment); err != nil {
				return err
			}
		}
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}

		if err := u.enqueue(txCtx, paymentDomain.EventPaymentRefunded, paymentEventPayload(payment)); err != nil {
			return err
		}
		return u.enqueue(txCtx, orderDomain.EventOrderRefunded, orderEventPayload(order))
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// MarkAsDisputed records a chargeback dispute on the payment.
func (u *paymentUseCase) MarkAsDisputed(ctx context.Context, paymentID uuid.UUID) (*paymentDomain.Payment, error) {
	var payment *paymentDomain.Payment

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = u.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}

		if payment.Status == paymentDomain.StatusDisputed {
			return nil
		}

		if err := payment.MarkAsDisputed(); err != nil {
			return err
		}
		if err := u.paymentRepo.Update(txCtx, payment); err != nil {
			return err
		}

		return u.enqueue(txCtx, paymentDomain.EventPaymentDisputed, paymentEventPayload(payment))
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// GetByID retrieves a payment by its identifier.
func (u *paymentUseCase) GetByID(ctx context.Context, paymentID uuid.UUID) (*paymentDomain.Payment, error) {
	return u.paymentRepo.GetByID(ctx, paymentID)
}

// GetByProviderRef retrieves a payment by its (provider, external reference) pair.
func (u *paymentUseCase) GetByProviderRef(
	ctx context.Context,
	provider string,
	externalReference string,
) (*paymentDomain.Payment, error) {
	return u.paymentRepo.GetByProviderRef(ctx, provider, externalReference)
}

// ListByOrder retrieves all payment attempts against an order.
func (u *paymentUseCase) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*paymentDomain.Payment, error) {
	return u.paymentRepo.ListByOrderID(ctx, orderID)
}

// enqueue writes an outbox message inside the caller's transaction.
func (u *paymentUseCase) enqueue(ctx context.Context, eventType string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode event payload")
	}

	return u.outboxRepo.Create(ctx, outboxDomain.NewMessage(eventType, string(data)))
}

func paymentEventPayload(payment *paymentDomain.Payment) map[string]any {
	payload := map[string]any{
		"payment_id":   payment.ID.String(),
		"order_id":     payment.OrderID.String(),
		"amount_cents": payment.AmountCents,
		"currency":     payment.Currency,
		"provider":     payment.Provider,
		"status":       string(payment.Status),
	}
	if payment.TransactionID != nil {
		payload["transaction_id"] = *payment.TransactionID
	}
	if payment.ErrorMessage != nil {
		payload["error_message"] = *payment.ErrorMessage
	}
	return payload
}

func orderEventPayload(order *orderDomain.Order) map[string]any {
	payload := map[string]any{
		"order_id":       order.ID.String(),
		"total_cents":    order.TotalCents,
		"currency":       order.Currency,
		"status":         string(order.Status),
		"payment_status": string(order.PaymentStatus),
	}
	if order.TrackingNumber != nil {
		payload["tracking_number"] = *order.TrackingNumber
	}
	return payload
}

func validateCreateInput(input CreateInput) error {
	err := validation.Errors{
		"amount_cents": validation.Validate(input.AmountCents, appvalidation.PositiveAmount{}),
		"currency":     validation.Validate(input.Currency, validation.Required, appvalidation.CurrencyCode),
		"method_type":  validation.Validate(input.MethodType, validation.Required, appvalidation.NotBlank),
		"provider":     validation.Validate(input.Provider, validation.Required, appvalidation.NotBlank),
	}.Filter()

	return appvalidation.WrapValidationError(err)
}

func validateOrderMatch(order *orderDomain.Order, userID *uuid.UUID, currency string) error {
	if order.UserID != nil && userID != nil && *order.UserID != *userID {
		return paymentDomain.ErrOrderUserMismatch
	}
	if order.UserID != nil && userID == nil {
		return paymentDomain.ErrOrderUserMismatch
	}
	if currency != order.Currency {
		return paymentDomain.ErrCurrencyMismatch
	}
	return nil
}
