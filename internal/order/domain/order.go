// Package domain defines the order aggregate and its state machine. Transitions
// are guarded identically for every caller: admin commands, the payment state
// machine and webhook ingestion all go through the same methods.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/errors"
)

// Status represents the order lifecycle state.
type Status string

// Order statuses.
const (
	StatusPending             Status = "pending"
	StatusProcessing          Status = "processing"
	StatusShipped             Status = "shipped"
	StatusDelivered           Status = "delivered"
	StatusReturned            Status = "returned"
	StatusCancelled           Status = "cancelled"
	StatusRefunded            Status = "refunded"
	StatusPartiallyRefunded   Status = "partially_refunded"
	StatusReturnedAndRefunded Status = "returned_and_refunded"
)

// IsTerminal reports whether the order accepts no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusReturnedAndRefunded || s == StatusRefunded
}

// fulfillmentRank orders the fulfillment progression so retried admin actions
// and duplicate webhooks can be recognized as already applied.
func (s Status) fulfillmentRank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing, StatusPartiallyRefunded:
		return 1
	case StatusShipped:
		return 2
	case StatusDelivered:
		return 3
	case StatusReturned:
		return 4
	default:
		return 5
	}
}

// PaymentStatus mirrors the payment outcome on the order row so fulfillment
// decisions never require a join.
type PaymentStatus string

// Order payment statuses.
const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Order represents a customer's purchase.
type Order struct {
	// ID is the unique order identifier.
	ID uuid.UUID
	// UserID references the buying user; nil for guest checkout.
	UserID *uuid.UUID
	// ShippingAddressID references the delivery address.
	ShippingAddressID uuid.UUID
	// BillingAddressID references the billing address; nil when same as shipping.
	BillingAddressID *uuid.UUID
	// SubtotalCents is the item total in minor units.
	SubtotalCents int64
	// TaxCents is the tax amount in minor units.
	TaxCents int64
	// ShippingCents is the shipping cost in minor units.
	ShippingCents int64
	// TotalCents is the charged total in minor units.
	TotalCents int64
	// Currency is the ISO 4217 code all amounts are denominated in.
	Currency string
	// Status is the current fulfillment state.
	Status Status
	// PaymentStatus mirrors the payment outcome.
	PaymentStatus PaymentStatus
	// RefundedCents accumulates partial refunds already issued.
	RefundedCents int64
	// TrackingNumber is set when the order ships.
	TrackingNumber *string
	// CancellationReason records why the order was cancelled.
	CancellationReason *string
	// RefundReason records why the order was refunded.
	RefundReason *string
	// Version is the optimistic lock counter.
	Version int64
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last mutation.
	UpdatedAt time.Time
}

// NewOrder creates a pending order.
func NewOrder(
	userID *uuid.UUID,
	shippingAddressID uuid.UUID,
	billingAddressID *uuid.UUID,
	subtotalCents int64,
	taxCents int64,
	shippingCents int64,
	currency string,
) *Order {
	now := time.Now().UTC()

	return &Order{
		ID:                uuid.Must(uuid.NewV7()),
		UserID:            userID,
		ShippingAddressID: shippingAddressID,
		BillingAddressID:  billingAddressID,
		SubtotalCents:     subtotalCents,
		TaxCents:          taxCents,
		ShippingCents:     shippingCents,
		TotalCents:        subtotalCents + taxCents + shippingCents,
		Currency:          currency,
		Status:            StatusPending,
		PaymentStatus:     PaymentStatusPending,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// RemainingCents is the payable amount not yet refunded.
func (o *Order) RemainingCents() int64 {
	return o.TotalCents - o.RefundedCents
}

// MarkAsPaid records successful payment and advances the order to processing.
// Requires a pending order whose payment has not already succeeded.
func (o *Order) MarkAsPaid() error {
	if o.PaymentStatus == PaymentStatusSucceeded {
		return errors.Wrap(errors.ErrInvalidTransition, "order payment already succeeded")
	}
	if o.Status != StatusPending {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be paid from status "+string(o.Status))
	}

	o.Status = StatusProcessing
	o.PaymentStatus = PaymentStatusSucceeded
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkPaymentFailed records a failed payment attempt on a still-pending order.
func (o *Order) MarkPaymentFailed() error {
	if o.Status != StatusPending {
		return errors.Wrap(errors.ErrInvalidTransition, "order payment cannot fail from status "+string(o.Status))
	}

	o.PaymentStatus = PaymentStatusFailed
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel cancels the order with a reason. Illegal once delivered, returned,
// refunded or already cancelled.
func (o *Order) Cancel(reason string) error {
	switch o.Status {
	case StatusDelivered, StatusReturned, StatusReturnedAndRefunded, StatusCancelled, StatusRefunded:
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be cancelled from status "+string(o.Status))
	}

	o.Status = StatusCancelled
	o.CancellationReason = &reason
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAsShipped records shipment with a tracking number. Calling it on an order
// already at or past shipped is a no-op success so retried admin actions and
// duplicate webhooks do not error.
func (o *Order) MarkAsShipped(trackingNumber string) error {
	if o.Status.IsTerminal() {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be shipped from status "+string(o.Status))
	}
	if o.Status.fulfillmentRank() >= StatusShipped.fulfillmentRank() {
		return nil
	}
	if o.Status != StatusProcessing && o.Status != StatusPartiallyRefunded {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be shipped from status "+string(o.Status))
	}

	o.Status = StatusShipped
	o.TrackingNumber = &trackingNumber
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAsDelivered records delivery. No-op success when already delivered or
// returned; illegal from terminal states or before shipment.
func (o *Order) MarkAsDelivered() error {
	if o.Status.IsTerminal() {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be delivered from status "+string(o.Status))
	}
	if o.Status.fulfillmentRank() >= StatusDelivered.fulfillmentRank() {
		return nil
	}
	if o.Status != StatusShipped {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be delivered from status "+string(o.Status))
	}

	o.Status = StatusDelivered
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAsReturned records a customer return. Requires a shipped or delivered order.
func (o *Order) MarkAsReturned() error {
	if o.Status == StatusReturned {
		return nil
	}
	if o.Status != StatusShipped && o.Status != StatusDelivered {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be returned from status "+string(o.Status))
	}

	o.Status = StatusReturned
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// ProcessRefund refunds the full remaining amount. Requires a succeeded or
// partially refunded payment. A returned order moves to returned_and_refunded.
func (o *Order) ProcessRefund(reason string) error {
	if o.PaymentStatus == PaymentStatusRefunded {
		return nil
	}
	if o.PaymentStatus != PaymentStatusSucceeded && o.PaymentStatus != PaymentStatusPartiallyRefunded {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be refunded with payment status "+string(o.PaymentStatus))
	}

	if o.Status == StatusReturned {
		o.Status = StatusReturnedAndRefunded
	} else {
		o.Status = StatusRefunded
	}
	o.PaymentStatus = PaymentStatusRefunded
	o.RefundedCents = o.TotalCents
	o.RefundReason = &reason
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// ProcessPartialRefund refunds part of the remaining amount. An amount equal to
// or exceeding the remaining payable amount promotes to a full refund.
func (o *Order) ProcessPartialRefund(amountCents int64, reason string) error {
	if amountCents <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "refund amount must be positive")
	}
	if o.PaymentStatus != PaymentStatusSucceeded && o.PaymentStatus != PaymentStatusPartiallyRefunded {
		return errors.Wrap(errors.ErrInvalidTransition, "order cannot be refunded with payment status "+string(o.PaymentStatus))
	}

	if amountCents >= o.RemainingCents() {
		return o.ProcessRefund(reason)
	}

	o.PaymentStatus = PaymentStatusPartiallyRefunded
	o.RefundedCents += amountCents
	if o.Status == StatusProcessing {
		o.Status = StatusPartiallyRefunded
	}
	o.RefundReason = &reason
	o.UpdatedAt = time.Now().UTC()
	return nil
}
