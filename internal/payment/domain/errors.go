package domain

import (
	"github.com/allisson/commerce/internal/errors"
)

// Payment-specific error definitions.
var (
	// ErrPaymentNotFound indicates no payment matches the given identifier.
	ErrPaymentNotFound = errors.Wrap(errors.ErrNotFound, "payment not found")
	// ErrPaymentAlreadyExists indicates the (provider, external reference) pair is taken.
	ErrPaymentAlreadyExists = errors.Wrap(errors.ErrConflict, "payment already exists for this provider reference")
	// ErrCurrencyMismatch indicates the payment currency disagrees with the order currency.
	ErrCurrencyMismatch = errors.Wrap(errors.ErrInvalidInput, "payment currency does not match order currency")
	// ErrOrderUserMismatch indicates the payment user does not own the order.
	ErrOrderUserMismatch = errors.Wrap(errors.ErrInvalidInput, "payment user does not match order user")
)

// Outbox event type tags emitted by the payment state machine.
const (
	EventPaymentCreated   = "payment.created"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
	EventPaymentDisputed  = "payment.disputed"
)
