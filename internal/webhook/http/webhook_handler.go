// Package http provides the HTTP handler for inbound payment provider webhooks.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/commerce/internal/httputil"
	webhookUseCase "github.com/allisson/commerce/internal/webhook/usecase"
)

// Signature headers by provider convention; the gateway adapter knows which
// one applies.
const (
	headerStripeSignature  = "Stripe-Signature"
	headerWebhookSignature = "Webhook-Signature"
)

// WebhookHandler handles inbound webhook deliveries from payment providers.
type WebhookHandler struct {
	webhookUseCase webhookUseCase.WebhookUseCase
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler with required dependencies.
func NewWebhookHandler(webhookUseCase webhookUseCase.WebhookUseCase, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookUseCase: webhookUseCase,
		logger:         logger,
	}
}

// ReceiveHandler ingests one provider webhook delivery.
// POST /v1/webhooks/:provider
// Returns 200 OK whenever the event was verified, whether or not it caused a
// state change; providers retry anything else. Verification failures return 502
// via the gateway error mapping so a misconfigured secret is visible.
func (h *WebhookHandler) ReceiveHandler(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("provider cannot be empty"),
			h.logger,
		)
		return
	}

	rawPayload, err := c.GetRawData()
	if err != nil || len(rawPayload) == 0 {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("request body cannot be empty"),
			h.logger,
		)
		return
	}

	result, err := h.webhookUseCase.HandleWebhook(c.Request.Context(), webhookUseCase.Input{
		Provider:   provider,
		RawPayload: rawPayload,
		Signature:  extractSignature(c),
		Headers:    flattenHeaders(c),
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received":   true,
		"handled":    result.Handled,
		"event_type": result.EventType,
	})
}

// extractSignature picks the first known signature header present on the
// request.
func extractSignature(c *gin.Context) string {
	for _, header := range []string{headerStripeSignature, headerWebhookSignature} {
		if value := c.GetHeader(header); value != "" {
			return value
		}
	}
	return ""
}

// flattenHeaders copies request headers into a flat map for the gateway
// adapter; multi-valued headers keep their first value.
func flattenHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string, len(c.Request.Header))
	for name, values := range c.Request.Header {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return headers
}
