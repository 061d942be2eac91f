package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	validation "github.com/jellydator/validation"

	"github.com/allisson/commerce/internal/database"
	apperrors "github.com/allisson/commerce/internal/errors"
	orderDomain "github.com/allisson/commerce/internal/order/domain"
	outboxDomain "github.com/allisson/commerce/internal/outbox/domain"
	outboxUseCase "github.com/allisson/commerce/internal/outbox/usecase"
	appvalidation "github.com/allisson/commerce/internal/validation"

	"github.com/google/uuid"
)

// orderUseCase implements the OrderUseCase interface.
type orderUseCase struct {
	txManager  database.TxManager
	orderRepo  OrderRepository
	outboxRepo outboxUseCase.MessageRepository
	inventory  InventoryAdjuster
	logger     *slog.Logger
}

// NewOrderUseCase creates a new order use case.
func NewOrderUseCase(
	txManager database.TxManager,
	orderRepo OrderRepository,
	outboxRepo outboxUseCase.MessageRepository,
	inventory InventoryAdjuster,
	logger *slog.Logger,
) OrderUseCase {
	return &orderUseCase{
		txManager:  txManager,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		inventory:  inventory,
		logger:     logger,
	}
}

// Create validates the input and persists a pending order.
func (u *orderUseCase) Create(ctx context.Context, input CreateInput) (*orderDomain.Order, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	order := orderDomain.NewOrder(input.UserID, input.ShippingAddressID, input.BillingAddressID,
		input.SubtotalCents, input.TaxCents, input.ShippingCents, input.Currency)

	if err := u.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetByID retrieves an order by its identifier.
func (u *orderUseCase) GetByID(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error) {
	return u.orderRepo.GetByID(ctx, orderID)
}

// List retrieves orders newest first.
func (u *orderUseCase) List(ctx context.Context, limit int, offset int) ([]*orderDomain.Order, error) {
	return u.orderRepo.List(ctx, limit, offset)
}

// Ship records shipment with a tracking number. Shipping an already shipped or
// delivered order is a no-op success, so no event is enqueued for it.
func (u *orderUseCase) Ship(ctx context.Context, orderID uuid.UUID, trackingNumber string) (*orderDomain.Order, error) {
	return u.transition(ctx, orderID, func(order *orderDomain.Order) (bool, string, error) {
		before := order.Status
		if err := order.MarkAsShipped(trackingNumber); err != nil {
			return false, "", err
		}
		return before != order.Status, orderDomain.EventOrderShipped, nil
	})
}

// Deliver records delivery.
func (u *orderUseCase) Deliver(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error) {
	return u.transition(ctx, orderID, func(order *orderDomain.Order) (bool, string, error) {
		before := order.Status
		if err := order.MarkAsDelivered(); err != nil {
			return false, "", err
		}
		return before != order.Status, orderDomain.EventOrderDelivered, nil
	})
}

// Cancel cancels the order and restores reserved stock in the same transaction.
func (u *orderUseCase) Cancel(ctx context.Context, orderID uuid.UUID, reason string) (*orderDomain.Order, error) {
	var order *orderDomain.Order

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}

		if err := order.Cancel(reason); err != nil {
			return err
		}
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}
		if err := u.inventory.RestoreStock(txCtx, order.ID); err != nil {
			return err
		}

		return u.enqueue(txCtx, orderDomain.EventOrderCancelled, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// Return records a customer return.
func (u *orderUseCase) Return(ctx context.Context, orderID uuid.UUID) (*orderDomain.Order, error) {
	return u.transition(ctx, orderID, func(order *orderDomain.Order) (bool, string, error) {
		before := order.Status
		if err := order.MarkAsReturned(); err != nil {
			return false, "", err
		}
		return before != order.Status, "", nil
	})
}

// Refund fully refunds the order and restores stock in the same transaction.
func (u *orderUseCase) Refund(ctx context.Context, orderID uuid.UUID, reason string) (*orderDomain.Order, error) {
	var order *orderDomain.Order

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}

		alreadyRefunded := order.PaymentStatus == orderDomain.PaymentStatusRefunded

		if err := order.ProcessRefund(reason); err != nil {
			return err
		}
		if alreadyRefunded {
			return nil
		}

		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}
		if err := u.inventory.RestoreStock(txCtx, order.ID); err != nil {
			return err
		}

		return u.enqueue(txCtx, orderDomain.EventOrderRefunded, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// PartialRefund refunds part of the order's remaining amount. An amount covering
// the full remainder is promoted to a full refund by the aggregate.
func (u *orderUseCase) PartialRefund(
	ctx context.Context,
	orderID uuid.UUID,
	amountCents int64,
	reason string,
) (*orderDomain.Order, error) {
	var order *orderDomain.Order

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}

		if err := order.ProcessPartialRefund(amountCents, reason); err != nil {
			return err
		}
		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}

		if order.PaymentStatus == orderDomain.PaymentStatusRefunded {
			if err := u.inventory.RestoreStock(txCtx, order.ID); err != nil {
				return err
			}
		}

		return u.enqueue(txCtx, orderDomain.EventOrderRefunded, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// transition runs a guarded state change in a transaction. The apply function
// reports whether the order actually changed; no-op transitions skip the write
// and the event.
func (u *orderUseCase) transition(
	ctx context.Context,
	orderID uuid.UUID,
	apply func(order *orderDomain.Order) (bool, string, error),
) (*orderDomain.Order, error) {
	var order *orderDomain.Order

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		order, err = u.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}

		changed, eventType, err := apply(order)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := u.orderRepo.Update(txCtx, order); err != nil {
			return err
		}
		if eventType == "" {
			return nil
		}

		return u.enqueue(txCtx, eventType, order)
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// enqueue writes an outbox message inside the caller's transaction.
func (u *orderUseCase) enqueue(ctx context.Context, eventType string, order *orderDomain.Order) error {
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
	if order.CancellationReason != nil {
		payload["cancellation_reason"] = *order.CancellationReason
	}
	if order.RefundReason != nil {
		payload["refund_reason"] = *order.RefundReason
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode event payload")
	}

	return u.outboxRepo.Create(ctx, outboxDomain.NewMessage(eventType, string(data)))
}

func validateCreateInput(input CreateInput) error {
	err := validation.Errors{
		"subtotal_cents": validation.Validate(input.SubtotalCents, appvalidation.PositiveAmount{}),
		"currency":       validation.Validate(input.Currency, validation.Required, appvalidation.CurrencyCode),
	}.Filter()

	return appvalidation.WrapValidationError(err)
}
