package app

import (
	"context"
	"fmt"

	orderDomain "github.com/allisson/commerce/internal/order/domain"
	outboxRepository "github.com/allisson/commerce/internal/outbox/repository"
	outboxUseCase "github.com/allisson/commerce/internal/outbox/usecase"
	paymentDomain "github.com/allisson/commerce/internal/payment/domain"
)

// OutboxRepository returns the outbox message repository based on database driver.
func (c *Container) OutboxRepository() (outboxUseCase.MessageRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// EventDispatcher returns the dispatcher that routes relayed messages to sinks.
func (c *Container) EventDispatcher() *outboxUseCase.EventDispatcher {
	c.dispatcherInit.Do(func() {
		c.dispatcher = c.initEventDispatcher()
	})
	return c.dispatcher
}

// RelayUseCase returns the outbox relay use case.
func (c *Container) RelayUseCase() (outboxUseCase.UseCase, error) {
	var err error
	c.relayUseCaseInit.Do(func() {
		c.relayUseCase, err = c.initRelayUseCase()
		if err != nil {
			c.initErrors["relayUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["relayUseCase"]; exists {
		return nil, storedErr
	}
	return c.relayUseCase, nil
}

// initOutboxRepository creates the outbox message repository based on the database driver.
func (c *Container) initOutboxRepository() (outboxUseCase.MessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return outboxRepository.NewPostgreSQLOutboxRepository(db), nil
	case "mysql":
		return outboxRepository.NewMySQLOutboxRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventDispatcher creates the dispatcher and registers a handler per event
// type. The log-backed sinks stand in for real integrations; swapping one out
// only touches this wiring.
func (c *Container) initEventDispatcher() *outboxUseCase.EventDispatcher {
	logger := c.Logger()

	notifier := outboxUseCase.NewLogNotificationSink(logger)
	cacheInvalidator := outboxUseCase.NewLogCacheInvalidator(logger)
	searchIndexer := outboxUseCase.NewLogSearchIndexer(logger)

	dispatcher := outboxUseCase.NewEventDispatcher(logger)

	paymentEvents := []string{
		paymentDomain.EventPaymentCreated,
		paymentDomain.EventPaymentSucceeded,
		paymentDomain.EventPaymentFailed,
		paymentDomain.EventPaymentRefunded,
		paymentDomain.EventPaymentDisputed,
	}
	for _, eventType := range paymentEvents {
		et := eventType
		dispatcher.Register(et, func(ctx context.Context, payload map[string]any) error {
			if err := notifier.Notify(ctx, et, payload); err != nil {
				return err
			}
			if paymentID, ok := payload["payment_id"].(string); ok {
				return searchIndexer.Reindex(ctx, "payment", paymentID)
			}
			return nil
		})
	}

	orderEvents := []string{
		orderDomain.EventOrderPaid,
		orderDomain.EventOrderShipped,
		orderDomain.EventOrderDelivered,
		orderDomain.EventOrderCancelled,
		orderDomain.EventOrderRefunded,
	}
	for _, eventType := range orderEvents {
		et := eventType
		dispatcher.Register(et, func(ctx context.Context, payload map[string]any) error {
			if err := notifier.Notify(ctx, et, payload); err != nil {
				return err
			}
			orderID, ok := payload["order_id"].(string)
			if !ok {
				return nil
			}
			if err := cacheInvalidator.Invalidate(ctx, []string{"order:" + orderID}); err != nil {
				return err
			}
			return searchIndexer.Reindex(ctx, "order", orderID)
		})
	}

	return dispatcher
}

// initRelayUseCase creates the outbox relay use case with all its dependencies.
func (c *Container) initRelayUseCase() (outboxUseCase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for relay use case: %w", err)
	}

	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for relay use case: %w", err)
	}

	relayConfig := outboxUseCase.Config{
		Interval:    c.config.RelayInterval,
		BatchSize:   c.config.RelayBatchSize,
		MaxRetries:  c.config.RelayMaxRetries,
		BackoffBase: c.config.RelayBackoffBase,
		BackoffMax:  c.config.RelayBackoffMax,
		Retention:   c.config.OutboxRetention,
	}

	return outboxUseCase.NewRelayUseCase(
		relayConfig,
		txManager,
		outboxRepo,
		c.EventDispatcher(),
		c.Logger(),
	), nil
}
