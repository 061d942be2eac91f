package app

import (
	"fmt"

	webhookHTTP "github.com/allisson/commerce/internal/webhook/http"
	webhookUseCase "github.com/allisson/commerce/internal/webhook/usecase"
)

// WebhookUseCase returns the webhook use case.
func (c *Container) WebhookUseCase() (webhookUseCase.WebhookUseCase, error) {
	var err error
	c.webhookUseCaseInit.Do(func() {
		c.webhookUseCase, err = c.initWebhookUseCase()
		if err != nil {
			c.initErrors["webhookUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["webhookUseCase"]; exists {
		return nil, storedErr
	}
	return c.webhookUseCase, nil
}

// WebhookHandler returns the HTTP handler for webhook ingestion.
func (c *Container) WebhookHandler() (*webhookHTTP.WebhookHandler, error) {
	var err error
	c.webhookHandlerInit.Do(func() {
		c.webhookHandler, err = c.initWebhookHandler()
		if err != nil {
			c.initErrors["webhookHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["webhookHandler"]; exists {
		return nil, storedErr
	}
	return c.webhookHandler, nil
}

// initWebhookUseCase creates the webhook use case with all its dependencies.
func (c *Container) initWebhookUseCase() (webhookUseCase.WebhookUseCase, error) {
	payments, err := c.PaymentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment use case for webhook use case: %w", err)
	}

	orders, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for webhook use case: %w", err)
	}

	return webhookUseCase.NewWebhookUseCase(c.GatewayClient(), payments, orders, c.Logger()), nil
}

// initWebhookHandler creates the webhook HTTP handler with all its dependencies.
func (c *Container) initWebhookHandler() (*webhookHTTP.WebhookHandler, error) {
	useCase, err := c.WebhookUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook use case for webhook handler: %w", err)
	}

	return webhookHTTP.NewWebhookHandler(useCase, c.Logger()), nil
}
