// Package domain defines the payment aggregate and its state machine. A payment
// records one attempt to collect funds for an order; retried checkouts produce
// multiple payment rows against the same order. Amount and currency are immutable
// after creation, only status, transaction id and metadata evolve.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/errors"
)

// Status represents the payment lifecycle state.
type Status string

// Payment statuses.
const (
	StatusPending              Status = "pending"
	StatusProcessing           Status = "processing"
	StatusRequiresAction       Status = "requires_action"
	StatusRequiresConfirmation Status = "requires_confirmation"
	StatusSucceeded            Status = "succeeded"
	StatusFailed               Status = "failed"
	StatusRefunded             Status = "refunded"
	StatusPartiallyRefunded    Status = "partially_refunded"
	StatusDisputed             Status = "disputed"
)

// IsTerminal reports whether the status accepts no further transitions within
// this core. Failed is not terminal here: a retried checkout creates a new
// payment row, but webhooks may still settle an old failed intent.
func (s Status) IsTerminal() bool {
	return s == StatusRefunded || s == StatusDisputed
}

// Rank orders statuses by how far the payment has advanced. Webhooks can arrive
// out of order; a regressive event must never move a payment backwards, so the
// most advanced state wins.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing, StatusRequiresAction, StatusRequiresConfirmation:
		return 1
	case StatusFailed:
		return 2
	case StatusSucceeded:
		return 3
	case StatusPartiallyRefunded:
		return 4
	case StatusRefunded, StatusDisputed:
		return 5
	default:
		return -1
	}
}

// Payment represents one attempt to collect funds for an order.
type Payment struct {
	// ID is the unique identifier for this payment attempt.
	ID uuid.UUID
	// OrderID references the order this payment pays for.
	OrderID uuid.UUID
	// UserID references the paying user; nil for guest checkout.
	UserID *uuid.UUID
	// AmountCents is the charged amount in minor units; immutable after creation.
	AmountCents int64
	// Currency is the ISO 4217 code matching the order's currency.
	Currency string
	// MethodType is the payment instrument kind (e.g. "card").
	MethodType string
	// Provider identifies the gateway that processes this payment.
	Provider string
	// ExternalReference is the gateway-assigned object id; unique per provider.
	ExternalReference *string
	// TransactionID is the settlement evidence recorded on success or refund.
	TransactionID *string
	// Status is the current state machine position.
	Status Status
	// ErrorMessage records the gateway decline or internal failure reason.
	ErrorMessage *string
	// ProcessedAt is set when the payment reaches a settled state.
	ProcessedAt *time.Time
	// Metadata holds caller-supplied and provider-prefixed key/value pairs.
	Metadata Metadata
	// Version is the optimistic lock counter; every update is conditioned on it.
	Version int64
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
	// UpdatedAt is the UTC timestamp of the last mutation.
	UpdatedAt time.Time
}

// NewPayment creates a pending payment for an order.
func NewPayment(
	orderID uuid.UUID,
	userID *uuid.UUID,
	amountCents int64,
	currency string,
	methodType string,
	provider string,
	externalReference *string,
) *Payment {
	now := time.Now().UTC()

	return &Payment{
		ID:                uuid.Must(uuid.NewV7()),
		OrderID:           orderID,
		UserID:            userID,
		AmountCents:       amountCents,
		Currency:          currency,
		MethodType:        methodType,
		Provider:          provider,
		ExternalReference: externalReference,
		Status:            StatusPending,
		Metadata:          Metadata{},
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// MarkAsSucceeded records successful settlement with the given transaction id.
// Repeating the call with the same transaction id is a no-op success; a different
// terminal state or conflicting evidence is an invalid transition.
func (p *Payment) MarkAsSucceeded(transactionID string) error {
	if p.Status == StatusSucceeded {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return nil
		}
		return errors.Wrap(errors.ErrInvalidTransition, "payment already succeeded with a different transaction id")
	}
	if p.Status.IsTerminal() || p.Status == StatusPartiallyRefunded {
		return errors.Wrap(errors.ErrInvalidTransition, "payment cannot succeed from status "+string(p.Status))
	}

	now := time.Now().UTC()
	p.Status = StatusSucceeded
	p.TransactionID = &transactionID
	p.ErrorMessage = nil
	p.ProcessedAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkAsFailed records a failed attempt with the given reason. Legal from any
// non-settled state; repeating on an already failed payment is a no-op.
func (p *Payment) MarkAsFailed(reason string) error {
	if p.Status == StatusFailed {
		return nil
	}
	if p.Status == StatusSucceeded || p.Status.IsTerminal() || p.Status == StatusPartiallyRefunded {
		return errors.Wrap(errors.ErrInvalidTransition, "payment cannot fail from status "+string(p.Status))
	}

	now := time.Now().UTC()
	p.Status = StatusFailed
	p.ErrorMessage = &reason
	p.ProcessedAt = &now
	p.UpdatedAt = now
	return nil
}

// MarkAsRefunded records a full refund. Requires a succeeded or partially
// refunded payment; repeating with the same transaction id is a no-op.
func (p *Payment) MarkAsRefunded(transactionID string) error {
	if p.Status == StatusRefunded {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return nil
		}
		return errors.Wrap(errors.ErrInvalidTransition, "payment already refunded with a different transaction id")
	}
	if p.Status != StatusSucceeded && p.Status != StatusPartiallyRefunded {
		return errors.Wrap(errors.ErrInvalidTransition, "payment cannot be refunded from status "+string(p.Status))
	}

	now := time.Now().UTC()
	p.Status = StatusRefunded
	p.TransactionID = &transactionID
	p.UpdatedAt = now
	return nil
}

// MarkAsPartiallyRefunded records a partial refund. Requires a succeeded or
// already partially refunded payment; repeating with the same transaction id is
// a no-op.
func (p *Payment) MarkAsPartiallyRefunded(transactionID string) error {
	if p.Status == StatusPartiallyRefunded {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			return nil
		}
		// A second partial refund against the same payment carries new evidence.
		p.TransactionID = &transactionID
		p.UpdatedAt = time.Now().UTC()
		return nil
	}
	if p.Status != StatusSucceeded {
		return errors.Wrap(errors.ErrInvalidTransition, "payment cannot be partially refunded from status "+string(p.Status))
	}

	now := time.Now().UTC()
	p.Status = StatusPartiallyRefunded
	p.TransactionID = &transactionID
	p.UpdatedAt = now
	return nil
}

// MarkAsDisputed records a chargeback dispute. Requires a succeeded payment;
// repeating is a no-op.
func (p *Payment) MarkAsDisputed() error {
	if p.Status == StatusDisputed {
		return nil
	}
	if p.Status != StatusSucceeded && p.Status != StatusPartiallyRefunded {
		return errors.Wrap(errors.ErrInvalidTransition, "payment cannot be disputed from status "+string(p.Status))
	}

	p.Status = StatusDisputed
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// MirrorGatewayStatus sets the status reported by the gateway for a freshly
// processed payment. Used only when persisting the outcome of a synchronous
// gateway call, before the payment has settled.
func (p *Payment) MirrorGatewayStatus(status Status, transactionID *string) error {
	switch status {
	case StatusSucceeded:
		if transactionID == nil {
			return errors.Wrap(errors.ErrInvalidInput, "succeeded gateway status requires a transaction id")
		}
		return p.MarkAsSucceeded(*transactionID)
	case StatusProcessing, StatusRequiresAction, StatusRequiresConfirmation:
		if p.Status != StatusPending {
			return errors.Wrap(errors.ErrInvalidTransition, "payment cannot move to "+string(status)+" from status "+string(p.Status))
		}
		p.Status = status
		p.TransactionID = transactionID
		p.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return errors.Wrap(errors.ErrInvalidInput, "unsupported gateway status "+string(status))
	}
}
