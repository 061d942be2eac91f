package domain

import (
	"github.com/allisson/commerce/internal/errors"
)

// Order-specific error definitions.
var (
	// ErrOrderNotFound indicates no order matches the given identifier.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")
)

// Outbox event type tags emitted by the order state machine.
const (
	EventOrderPaid      = "order.paid"
	EventOrderShipped   = "order.shipped"
	EventOrderDelivered = "order.delivered"
	EventOrderCancelled = "order.cancelled"
	EventOrderRefunded  = "order.refunded"
)
