// Package gateway defines the boundary to external payment providers. Only the
// client interface and its request/response shapes live here; concrete provider
// integrations are wired by the application.
package gateway

import (
	"context"
)

// ProcessPaymentRequest carries one synchronous charge attempt to a provider.
type ProcessPaymentRequest struct {
	AmountCents int64
	Currency    string
	MethodType  string
	Provider    string
	Token       string
	CustomerID  *string
	Metadata    map[string]any
}

// ProcessPaymentResponse is the provider's normalized answer to a charge attempt.
type ProcessPaymentResponse struct {
	// Status is the provider-reported payment status in this system's vocabulary
	// (succeeded, processing, requires_action, requires_confirmation).
	Status string
	// TransactionID is the provider's settlement evidence; set when Status is succeeded.
	TransactionID *string
	// ExternalReference is the provider-side object id used to correlate webhooks.
	ExternalReference *string
	// ClientSecret lets the caller complete a requires_action flow on the client side.
	ClientSecret *string
	// RequiresAction signals additional customer interaction (3DS challenge).
	RequiresAction bool
	// NextActionType names the interaction the provider expects next.
	NextActionType *string
	// DeclineReason carries the provider decline code on failure.
	DeclineReason *string
	// RiskLevel is the provider's fraud assessment.
	RiskLevel *string
	// FailureReason is a human-readable failure description.
	FailureReason *string
	// Metadata holds provider-supplied key/value pairs.
	Metadata map[string]any
}

// ProcessWebhookRequest carries one raw inbound provider callback.
type ProcessWebhookRequest struct {
	Provider   string
	RawPayload []byte
	Signature  string
	Headers    map[string]string
}

// WebhookEvent is a verified, normalized provider callback.
type WebhookEvent struct {
	// EventType is the provider event name (e.g. "payment_intent.succeeded").
	EventType string
	// TransactionID is the provider object id the event refers to.
	TransactionID string
	// CustomerID is the provider-side customer, when present.
	CustomerID *string
	// OccurredAt is the provider event timestamp in unix seconds; zero when absent.
	OccurredAt int64
	// EventData is the event body as a loosely typed map.
	EventData map[string]any
}

// Client is the external payment provider collaborator. Implementations must
// honor the context deadline; callers never invoke Client inside a database
// transaction.
type Client interface {
	ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*ProcessPaymentResponse, error)
	ProcessWebhook(ctx context.Context, req ProcessWebhookRequest) (*WebhookEvent, error)
}
