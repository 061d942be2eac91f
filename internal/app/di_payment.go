package app

import (
	"fmt"

	"github.com/allisson/commerce/internal/payment/gateway"
	"github.com/allisson/commerce/internal/payment/gateway/sandbox"
	paymentHTTP "github.com/allisson/commerce/internal/payment/http"
	paymentRepository "github.com/allisson/commerce/internal/payment/repository"
	paymentUseCase "github.com/allisson/commerce/internal/payment/usecase"
)

// PaymentRepository returns the payment repository based on database driver.
func (c *Container) PaymentRepository() (paymentUseCase.PaymentRepository, error) {
	var err error
	c.paymentRepoInit.Do(func() {
		c.paymentRepo, err = c.initPaymentRepository()
		if err != nil {
			c.initErrors["paymentRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["paymentRepo"]; exists {
		return nil, storedErr
	}
	return c.paymentRepo, nil
}

// GatewayClient returns the payment gateway client.
func (c *Container) GatewayClient() gateway.Client {
	c.gatewayClientInit.Do(func() {
		c.gatewayClient = sandbox.NewClient(c.config.GatewayWebhookSecret, c.Logger())
	})
	return c.gatewayClient
}

// PaymentUseCase returns the payment use case.
func (c *Container) PaymentUseCase() (paymentUseCase.PaymentUseCase, error) {
	var err error
	c.paymentUseCaseInit.Do(func() {
		c.paymentUseCase, err = c.initPaymentUseCase()
		if err != nil {
			c.initErrors["paymentUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["paymentUseCase"]; exists {
		return nil, storedErr
	}
	return c.paymentUseCase, nil
}

// PaymentHandler returns the HTTP handler for payment operations.
func (c *Container) PaymentHandler() (*paymentHTTP.PaymentHandler, error) {
	var err error
	c.paymentHandlerInit.Do(func() {
		c.paymentHandler, err = c.initPaymentHandler()
		if err != nil {
			c.initErrors["paymentHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["paymentHandler"]; exists {
		return nil, storedErr
	}
	return c.paymentHandler, nil
}

// initPaymentRepository creates the payment repository based on the database driver.
func (c *Container) initPaymentRepository() (paymentUseCase.PaymentRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for payment repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return paymentRepository.NewPostgreSQLPaymentRepository(db), nil
	case "mysql":
		return paymentRepository.NewMySQLPaymentRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPaymentUseCase creates the payment use case with all its dependencies.
func (c *Container) initPaymentUseCase() (paymentUseCase.PaymentUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for payment use case: %w", err)
	}

	paymentRepo, err := c.PaymentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment repository for payment use case: %w", err)
	}

	orderRepo, err := c.OrderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get order repository for payment use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for payment use case: %w", err)
	}

	baseUseCase := paymentUseCase.NewPaymentUseCase(
		txManager,
		paymentRepo,
		orderRepo,
		outboxRepo,
		c.GatewayClient(),
		c.config.GatewayTimeout,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for payment use case: %w", err)
		}
		return paymentUseCase.NewPaymentUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initPaymentHandler creates the payment HTTP handler with all its dependencies.
func (c *Container) initPaymentHandler() (*paymentHTTP.PaymentHandler, error) {
	useCase, err := c.PaymentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get payment use case for payment handler: %w", err)
	}

	return paymentHTTP.NewPaymentHandler(useCase, c.Logger()), nil
}
