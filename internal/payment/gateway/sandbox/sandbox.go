// Package sandbox provides a self-contained payment gateway client for
// development and testing. Charge outcomes are driven by the payment method
// token prefix and webhooks are verified with an HMAC signature, mimicking how
// hosted providers behave without calling one.
package sandbox

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/commerce/internal/errors"
	"github.com/allisson/commerce/internal/payment/gateway"
)

// Token prefixes that select the simulated charge outcome.
const (
	tokenPrefixDeclined = "tok_declined"
	tokenPrefixAction   = "tok_action"
	tokenPrefixError    = "tok_error"
)

// Client is a sandbox implementation of gateway.Client.
type Client struct {
	webhookSecret string
	logger        *slog.Logger
}

// NewClient creates a sandbox gateway client. The webhook secret signs and
// verifies inbound webhook payloads.
func NewClient(webhookSecret string, logger *slog.Logger) *Client {
	return &Client{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// ProcessPayment simulates a synchronous charge. The outcome depends on the
// token prefix: declined, requires_action, transient error, or success.
func (c *Client) ProcessPayment(ctx context.Context, req gateway.ProcessPaymentRequest) (*gateway.ProcessPaymentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(req.Token, tokenPrefixError):
		return nil, fmt.Errorf("sandbox gateway unavailable")

	case strings.HasPrefix(req.Token, tokenPrefixDeclined):
		declineReason := "card_declined"
		return nil, fmt.Errorf("payment declined: %s", declineReason)

	case strings.HasPrefix(req.Token, tokenPrefixAction):
		externalReference := "pi_" + uuid.Must(uuid.NewV7()).String()
		clientSecret := externalReference + "_secret_" + uuid.Must(uuid.NewV7()).String()
		nextActionType := "redirect_to_url"
		return &gateway.ProcessPaymentResponse{
			Status:            "requires_action",
			ExternalReference: &externalReference,
			ClientSecret:      &clientSecret,
			NextActionType:    &nextActionType,
			RequiresAction:    true,
		}, nil

	default:
		externalReference := "pi_" + uuid.Must(uuid.NewV7()).String()
		transactionID := "txn_" + uuid.Must(uuid.NewV7()).String()
		riskLevel := "normal"
		return &gateway.ProcessPaymentResponse{
			Status:            "succeeded",
			ExternalReference: &externalReference,
			TransactionID:     &transactionID,
			RiskLevel:         &riskLevel,
			Metadata: map[string]any{
				"processed_at": time.Now().UTC().Format(time.RFC3339),
				"sandbox":      true,
			},
		}, nil
	}
}

// sandboxEvent is the wire shape of a sandbox webhook payload.
type sandboxEvent struct {
	Type          string         `json:"type"`
	TransactionID string         `json:"transaction_id"`
	CustomerID    *string        `json:"customer_id"`
	CreatedAt     int64          `json:"created_at"`
	Data          map[string]any `json:"data"`
}

// ProcessWebhook verifies the payload signature and normalizes the event. A
// missing or wrong signature fails verification; the payload is never trusted
// without it.
func (c *Client) ProcessWebhook(ctx context.Context, req gateway.ProcessWebhookRequest) (*gateway.WebhookEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !c.verifySignature(req.RawPayload, req.Signature) {
		return nil, apperrors.New("webhook signature verification failed")
	}

	var event sandboxEvent
	if err := json.Unmarshal(req.RawPayload, &event); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	if event.Type == "" {
		return nil, fmt.Errorf("webhook payload missing event type")
	}

	if c.logger != nil {
		c.logger.Debug("webhook verified",
			slog.String("provider", req.Provider),
			slog.String("event_type", event.Type),
		)
	}

	return &gateway.WebhookEvent{
		EventType:     event.Type,
		TransactionID: event.TransactionID,
		CustomerID:    event.CustomerID,
		OccurredAt:    event.CreatedAt,
		EventData:     event.Data,
	}, nil
}

// Sign computes the signature for a payload. Exposed so tests and local
// tooling can craft valid webhook deliveries.
func (c *Client) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	return hmac.Equal(expected, mac.Sum(nil))
}
