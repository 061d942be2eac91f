// Package integration provides end-to-end integration tests for the commerce API.
// Tests order, payment and webhook endpoints against both PostgreSQL and MySQL databases.
package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/commerce/internal/app"
	"github.com/allisson/commerce/internal/config"
	orderDTO "github.com/allisson/commerce/internal/order/http/dto"
	"github.com/allisson/commerce/internal/payment/gateway/sandbox"
	paymentDTO "github.com/allisson/commerce/internal/payment/http/dto"
	"github.com/allisson/commerce/internal/testutil"
)

const webhookSecret = "whsec_integration_test"

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container     *app.Container
	db            *sql.DB
	server        *httptest.Server
	gatewayClient *sandbox.Client
	dbDriver      string
}

// makeRequest performs an HTTP request and returns the response and body. Extra
// headers are applied on top of the Content-Type header.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
	headers map[string]string,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// sendWebhook posts a raw webhook payload with a valid sandbox signature.
func (ctx *integrationTestContext) sendWebhook(
	t *testing.T,
	payload []byte,
) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(
		http.MethodPost,
		ctx.server.URL+"/v1/webhooks/sandbox",
		bytes.NewReader(payload),
	)
	require.NoError(t, err, "failed to create webhook request")

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Webhook-Signature", ctx.gatewayClient.Sign(payload))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform webhook request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read webhook response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// createOrder creates an order through the API and returns its response.
func (ctx *integrationTestContext) createOrder(t *testing.T) orderDTO.OrderResponse {
	t.Helper()

	requestBody := orderDTO.CreateOrderRequest{
		ShippingAddressID: uuid.Must(uuid.NewV7()).String(),
		SubtotalCents:     4000,
		TaxCents:          500,
		ShippingCents:     500,
		Currency:          "USD",
	}

	resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders", requestBody, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "order creation failed: %s", string(body))

	var response orderDTO.OrderResponse
	err := json.Unmarshal(body, &response)
	require.NoError(t, err)
	return response
}

// getOrder fetches an order through the API.
func (ctx *integrationTestContext) getOrder(t *testing.T, orderID string) orderDTO.OrderResponse {
	t.Helper()

	resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/orders/"+orderID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var response orderDTO.OrderResponse
	err := json.Unmarshal(body, &response)
	require.NoError(t, err)
	return response
}

// countOutboxMessages returns the number of outbox messages for an event type.
func (ctx *integrationTestContext) countOutboxMessages(t *testing.T, eventType string) int {
	t.Helper()

	var count int
	var err error
	if ctx.dbDriver == "postgres" {
		err = ctx.db.QueryRow(
			"SELECT COUNT(*) FROM outbox_messages WHERE event_type = $1", eventType,
		).Scan(&count)
	} else {
		err = ctx.db.QueryRow(
			"SELECT COUNT(*) FROM outbox_messages WHERE event_type = ?", eventType,
		).Scan(&count)
	}
	require.NoError(t, err, "failed to count outbox messages")
	return count
}

// setupIntegrationTest initializes all components for integration testing.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Setup database
	var db *sql.DB
	var dsn string
	if dbDriver == "postgres" {
		db = testutil.SetupPostgresDB(t)
		dsn = testutil.GetPostgresTestDSN()
	} else {
		db = testutil.SetupMySQLDB(t)
		dsn = testutil.GetMySQLTestDSN()
	}

	// Create configuration
	cfg := &config.Config{
		DBDriver:             dbDriver,
		DBConnectionString:   dsn,
		DBMaxOpenConnections: 10,
		DBMaxIdleConnections: 5,
		DBConnMaxLifetime:    time.Hour,
		ServerHost:           "localhost",
		ServerPort:           8080,
		LogLevel:             "error",
		RelayInterval:        time.Second,
		RelayBatchSize:       50,
		RelayMaxRetries:      3,
		RelayBackoffBase:     time.Second,
		RelayBackoffMax:      time.Minute,
		OutboxRetention:      time.Hour,
		GatewayTimeout:       5 * time.Second,
		GatewayWebhookSecret: webhookSecret,
	}

	// Create DI container
	container := app.NewContainer(cfg)

	// Setup HTTP server
	httpSrv, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")

	// Get the handler from the server
	// The SetupRouter has already been called by container.HTTPServer()
	handler := httpSrv.GetHandler()
	require.NotNil(t, handler, "handler should not be nil after SetupRouter")

	// Create test server with the handler
	testServer := httptest.NewServer(handler)

	t.Logf("Integration test setup complete for %s", dbDriver)

	return &integrationTestContext{
		container:     container,
		db:            db,
		server:        testServer,
		gatewayClient: sandbox.NewClient(webhookSecret, nil),
		dbDriver:      dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.container != nil {
		err := ctx.container.Shutdown(context.Background())
		if err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}

	t.Logf("Integration test teardown complete for %s", ctx.dbDriver)
}

// TestIntegration_Health_BasicChecks validates infrastructure health and readiness endpoints.
// Tests health check and database connectivity verification against both PostgreSQL and MySQL.
func TestIntegration_Health_BasicChecks(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			// [1/2] Test GET /health - Health check endpoint
			t.Run("01_HealthCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/health", nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "healthy", response["status"])
			})

			// [2/2] Test GET /ready - Readiness check endpoint
			t.Run("02_ReadinessCheck", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/ready", nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]any
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "ready", response["status"])
			})

			t.Logf("All 2 health endpoint tests passed for %s", tc.dbDriver)
		})
	}
}

// TestIntegration_Orders_CompleteFlow tests the order fulfillment happy path.
// Validates order creation, synchronous payment, shipping, delivery and the
// outbox messages written alongside each transition.
func TestIntegration_Orders_CompleteFlow(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			// Variables to store created resource IDs for later operations
			var (
				orderID   string
				paymentID string
			)

			// [1/8] Test POST /v1/orders - Create order
			t.Run("01_CreateOrder", func(t *testing.T) {
				order := ctx.createOrder(t)
				assert.NotEmpty(t, order.ID)
				assert.Equal(t, int64(5000), order.TotalCents)
				assert.Equal(t, "USD", order.Currency)
				assert.Equal(t, "pending", order.Status)
				assert.Equal(t, "pending", order.PaymentStatus)
				assert.Equal(t, int64(1), order.Version)

				orderID = order.ID

				// Order creation writes an order.created outbox message
				assert.Equal(t, 1, ctx.countOutboxMessages(t, "order.created"))
			})

			// [2/8] Test GET /v1/orders/:id - Get order by ID
			t.Run("02_GetOrder", func(t *testing.T) {
				order := ctx.getOrder(t, orderID)
				assert.Equal(t, orderID, order.ID)
				assert.Equal(t, "pending", order.Status)
			})

			// [3/8] Test GET /v1/orders - List orders
			t.Run("03_ListOrders", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/orders", nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response orderDTO.OrderListResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, 1, response.Count)
				assert.Len(t, response.Orders, 1)
			})

			// [4/8] Test POST /v1/payments/process - Charge the order
			t.Run("04_ProcessPayment", func(t *testing.T) {
				requestBody := paymentDTO.ProcessPaymentRequest{
					OrderID:    orderID,
					MethodType: "card",
					Provider:   "sandbox",
					Token:      "tok_visa",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/payments/process", requestBody, nil)
				assert.Equal(t, http.StatusCreated, resp.StatusCode)

				var response paymentDTO.PaymentResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.NotEmpty(t, response.ID)
				assert.Equal(t, orderID, response.OrderID)
				assert.Equal(t, int64(5000), response.AmountCents)
				assert.Equal(t, "succeeded", response.Status)
				assert.NotNil(t, response.TransactionID)
				assert.NotNil(t, response.ExternalReference)

				paymentID = response.ID

				// Payment success commits payment.succeeded and order.paid together
				assert.Equal(t, 1, ctx.countOutboxMessages(t, "payment.succeeded"))
				assert.Equal(t, 1, ctx.countOutboxMessages(t, "order.paid"))

				// The order mirrors the payment outcome
				order := ctx.getOrder(t, orderID)
				assert.Equal(t, "processing", order.Status)
				assert.Equal(t, "succeeded", order.PaymentStatus)
				assert.Equal(t, int64(2), order.Version, "payment should bump the order version")
			})

			// [5/8] Test GET /v1/payments/:id - Get payment by ID
			t.Run("05_GetPayment", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/payments/"+paymentID, nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response paymentDTO.PaymentResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, paymentID, response.ID)
				assert.Equal(t, "succeeded", response.Status)
			})

			// [6/8] Test GET /v1/orders/:id/payments - List payments for the order
			t.Run("06_ListOrderPayments", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/orders/"+orderID+"/payments", nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response paymentDTO.PaymentListResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, 1, response.Count)
				assert.Equal(t, paymentID, response.Payments[0].ID)
			})

			// [7/8] Test POST /v1/orders/:id/ship - Ship the order
			t.Run("07_ShipOrder", func(t *testing.T) {
				requestBody := orderDTO.ShipOrderRequest{
					TrackingNumber: "TRACK-123456",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+orderID+"/ship", requestBody, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response orderDTO.OrderResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "shipped", response.Status)
				require.NotNil(t, response.TrackingNumber)
				assert.Equal(t, "TRACK-123456", *response.TrackingNumber)

				assert.Equal(t, 1, ctx.countOutboxMessages(t, "order.shipped"))
			})

			// [8/8] Test POST /v1/orders/:id/deliver - Deliver the order
			t.Run("08_DeliverOrder", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+orderID+"/deliver", nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response orderDTO.OrderResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "delivered", response.Status)

				assert.Equal(t, 1, ctx.countOutboxMessages(t, "order.delivered"))
			})

			t.Logf("All 8 order flow tests passed for %s", tc.dbDriver)
		})
	}
}

// TestIntegration_Payments_FailureAndGuards tests declined charges, invalid
// transitions and the order state machine guards exposed through the API.
func TestIntegration_Payments_FailureAndGuards(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			var orderID string

			// [1/5] Test POST /v1/payments/process - Declined card returns 502
			t.Run("01_DeclinedPayment", func(t *testing.T) {
				order := ctx.createOrder(t)
				orderID = order.ID

				requestBody := paymentDTO.ProcessPaymentRequest{
					OrderID:    orderID,
					MethodType: "card",
					Provider:   "sandbox",
					Token:      "tok_declined",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/payments/process", requestBody, nil)
				assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

				var response map[string]any
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "gateway_error", response["error"])
			})

			// [2/5] Verify the failed attempt was persisted for reconciliation
			t.Run("02_FailedAttemptPersisted", func(t *testing.T) {
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/orders/"+orderID+"/payments", nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response paymentDTO.PaymentListResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				require.Equal(t, 1, response.Count)
				assert.Equal(t, "failed", response.Payments[0].Status)
				assert.NotNil(t, response.Payments[0].ErrorMessage)

				assert.Equal(t, 1, ctx.countOutboxMessages(t, "payment.failed"))
			})

			// [3/5] Test POST /v1/orders/:id/ship - Unpaid order cannot ship
			t.Run("03_ShipUnpaidOrder", func(t *testing.T) {
				requestBody := orderDTO.ShipOrderRequest{
					TrackingNumber: "TRACK-000000",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+orderID+"/ship", requestBody, nil)
				assert.Equal(t, http.StatusConflict, resp.StatusCode)

				var response map[string]any
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "invalid_transition", response["error"])
			})

			// [4/5] Test POST /v1/payments/process - Retry with a good token succeeds
			t.Run("04_RetryPayment", func(t *testing.T) {
				requestBody := paymentDTO.ProcessPaymentRequest{
					OrderID:    orderID,
					MethodType: "card",
					Provider:   "sandbox",
					Token:      "tok_visa",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/payments/process", requestBody, nil)
				assert.Equal(t, http.StatusCreated, resp.StatusCode)

				var response paymentDTO.PaymentResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "succeeded", response.Status)

				order := ctx.getOrder(t, orderID)
				assert.Equal(t, "processing", order.Status)
				assert.Equal(t, "succeeded", order.PaymentStatus)
			})

			// [5/5] Test GET /v1/orders/:id - Unknown order returns 404
			t.Run("05_UnknownOrder", func(t *testing.T) {
				unknownID := uuid.Must(uuid.NewV7()).String()
				resp, body := ctx.makeRequest(t, http.MethodGet, "/v1/orders/"+unknownID, nil, nil)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)

				var response map[string]any
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "not_found", response["error"])
			})

			t.Logf("All 5 payment failure tests passed for %s", tc.dbDriver)
		})
	}
}

// TestIntegration_Webhooks_CompleteFlow tests asynchronous payment settlement
// through provider webhooks, including signature verification, idempotent
// redelivery and unknown-payment acknowledgement.
func TestIntegration_Webhooks_CompleteFlow(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			// Variables to store created resource IDs for later operations
			var (
				orderID           string
				paymentID         string
				externalReference string
			)

			// [1/7] Start an asynchronous payment that requires customer action
			t.Run("01_PaymentRequiresAction", func(t *testing.T) {
				order := ctx.createOrder(t)
				orderID = order.ID

				requestBody := paymentDTO.ProcessPaymentRequest{
					OrderID:    orderID,
					MethodType: "card",
					Provider:   "sandbox",
					Token:      "tok_action_3ds",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/payments/process", requestBody, nil)
				assert.Equal(t, http.StatusCreated, resp.StatusCode)

				var response paymentDTO.PaymentResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "requires_action", response.Status)
				require.NotNil(t, response.ExternalReference)

				paymentID = response.ID
				externalReference = *response.ExternalReference

				// No settlement yet, the order stays pending
				order = ctx.getOrder(t, orderID)
				assert.Equal(t, "pending", order.Status)
				assert.Equal(t, "pending", order.PaymentStatus)
			})

			// [2/7] Test POST /v1/webhooks/:provider - Settlement webhook
			t.Run("02_PaymentSucceededWebhook", func(t *testing.T) {
				payload, err := json.Marshal(map[string]any{
					"type":           "payment_intent.succeeded",
					"transaction_id": externalReference,
					"created_at":     time.Now().Unix(),
					"data": map[string]any{
						"transaction_id": "txn_webhook_settled",
					},
				})
				require.NoError(t, err)

				resp, body := ctx.sendWebhook(t, payload)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]any
				err = json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, true, response["received"])
				assert.Equal(t, true, response["handled"])
				assert.Equal(t, "payment_intent.succeeded", response["event_type"])

				// The payment settled and the order followed
				order := ctx.getOrder(t, orderID)
				assert.Equal(t, "processing", order.Status)
				assert.Equal(t, "succeeded", order.PaymentStatus)

				assert.Equal(t, 1, ctx.countOutboxMessages(t, "payment.succeeded"))
				assert.Equal(t, 1, ctx.countOutboxMessages(t, "order.paid"))
			})

			// [3/7] Redelivery of the same webhook is acknowledged without action
			t.Run("03_DuplicateWebhook", func(t *testing.T) {
				payload, err := json.Marshal(map[string]any{
					"type":           "payment_intent.succeeded",
					"transaction_id": externalReference,
					"created_at":     time.Now().Unix(),
					"data": map[string]any{
						"transaction_id": "txn_webhook_settled",
					},
				})
				require.NoError(t, err)

				resp, body := ctx.sendWebhook(t, payload)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]any
				err = json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, true, response["received"])

				// No duplicate events were enqueued
				assert.Equal(t, 1, ctx.countOutboxMessages(t, "payment.succeeded"))
				assert.Equal(t, 1, ctx.countOutboxMessages(t, "order.paid"))
			})

			// [4/7] A stale failure event never regresses a settled payment
			t.Run("04_StaleFailureWebhook", func(t *testing.T) {
				payload, err := json.Marshal(map[string]any{
					"type":           "payment_intent.payment_failed",
					"transaction_id": externalReference,
					"created_at":     time.Now().Unix(),
					"data": map[string]any{
						"failure_reason": "card_declined",
					},
				})
				require.NoError(t, err)

				resp, body := ctx.sendWebhook(t, payload)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]any
				err = json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, false, response["handled"], "stale failure should be skipped")

				resp, body = ctx.makeRequest(t, http.MethodGet, "/v1/payments/"+paymentID, nil, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var payment paymentDTO.PaymentResponse
				err = json.Unmarshal(body, &payment)
				require.NoError(t, err)
				assert.Equal(t, "succeeded", payment.Status)
			})

			// [5/7] A refund webhook flows through to the payment and order
			t.Run("05_RefundWebhook", func(t *testing.T) {
				payload, err := json.Marshal(map[string]any{
					"type":           "charge.refunded",
					"transaction_id": externalReference,
					"created_at":     time.Now().Unix(),
					"data": map[string]any{
						"refund_id":       "re_integration_1",
						"amount_refunded": 5000,
						"reason":          "requested_by_customer",
					},
				})
				require.NoError(t, err)

				resp, body := ctx.sendWebhook(t, payload)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]any
				err = json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, true, response["handled"])

				order := ctx.getOrder(t, orderID)
				assert.Equal(t, "refunded", order.Status)
				assert.Equal(t, "refunded", order.PaymentStatus)
				assert.Equal(t, int64(5000), order.RefundedCents)
			})

			// [6/7] Events for unknown payments are acknowledged without action
			t.Run("06_UnknownPaymentWebhook", func(t *testing.T) {
				payload, err := json.Marshal(map[string]any{
					"type":           "payment_intent.succeeded",
					"transaction_id": "pi_unknown_reference",
					"created_at":     time.Now().Unix(),
					"data":           map[string]any{},
				})
				require.NoError(t, err)

				resp, body := ctx.sendWebhook(t, payload)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response map[string]any
				err = json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, true, response["received"])
				assert.Equal(t, false, response["handled"])
			})

			// [7/7] A tampered signature is rejected
			t.Run("07_InvalidSignature", func(t *testing.T) {
				payload := []byte(`{"type":"payment_intent.succeeded","transaction_id":"pi_whatever"}`)

				resp, body := ctx.makeRequest(
					t,
					http.MethodPost,
					"/v1/webhooks/sandbox",
					json.RawMessage(payload),
					map[string]string{"Webhook-Signature": "deadbeef"},
				)
				assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

				var response map[string]any
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "gateway_error", response["error"])
			})

			t.Logf("All 7 webhook tests passed for %s", tc.dbDriver)
		})
	}
}

// TestIntegration_Orders_CancelAndRefund tests the corrective order transitions:
// cancellation of an unpaid order and full/partial refunds of a paid one.
func TestIntegration_Orders_CancelAndRefund(t *testing.T) {
	// Skip if short mode (integration tests can be slow)
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testCases := []struct {
		name     string
		dbDriver string
	}{
		{"PostgreSQL", "postgres"},
		{"MySQL", "mysql"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Setup
			ctx := setupIntegrationTest(t, tc.dbDriver)
			defer teardownIntegrationTest(t, ctx)

			// [1/4] Test POST /v1/orders/:id/cancel - Cancel an unpaid order
			t.Run("01_CancelOrder", func(t *testing.T) {
				order := ctx.createOrder(t)

				requestBody := orderDTO.CancelOrderRequest{
					Reason: "customer changed their mind",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/cancel", requestBody, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response orderDTO.OrderResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "cancelled", response.Status)
				require.NotNil(t, response.CancellationReason)
				assert.Equal(t, "customer changed their mind", *response.CancellationReason)

				assert.Equal(t, 1, ctx.countOutboxMessages(t, "order.cancelled"))
			})

			// [2/4] Cancelled orders reject further transitions
			t.Run("02_CancelledOrderIsTerminal", func(t *testing.T) {
				order := ctx.createOrder(t)

				cancelBody := orderDTO.CancelOrderRequest{Reason: "duplicate order"}
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/cancel", cancelBody, nil)
				require.Equal(t, http.StatusOK, resp.StatusCode)

				shipBody := orderDTO.ShipOrderRequest{TrackingNumber: "TRACK-999999"}
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/ship", shipBody, nil)
				assert.Equal(t, http.StatusConflict, resp.StatusCode)

				var response map[string]any
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "invalid_transition", response["error"])
			})

			// [3/4] Test POST /v1/orders/:id/refund - Partial refund of a paid order
			t.Run("03_PartialRefund", func(t *testing.T) {
				order := ctx.createOrder(t)

				payBody := paymentDTO.ProcessPaymentRequest{
					OrderID:    order.ID,
					MethodType: "card",
					Provider:   "sandbox",
					Token:      "tok_visa",
				}
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/payments/process", payBody, nil)
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				amount := int64(1500)
				refundBody := orderDTO.RefundOrderRequest{
					AmountCents: &amount,
					Reason:      "damaged item",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/refund", refundBody, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response orderDTO.OrderResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "partially_refunded", response.PaymentStatus)
				assert.Equal(t, int64(1500), response.RefundedCents)
			})

			// [4/4] Test POST /v1/orders/:id/refund - Full refund of a paid order
			t.Run("04_FullRefund", func(t *testing.T) {
				order := ctx.createOrder(t)

				payBody := paymentDTO.ProcessPaymentRequest{
					OrderID:    order.ID,
					MethodType: "card",
					Provider:   "sandbox",
					Token:      "tok_visa",
				}
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/payments/process", payBody, nil)
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				refundBody := orderDTO.RefundOrderRequest{
					Reason: "order lost in transit",
				}

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/orders/"+order.ID+"/refund", refundBody, nil)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				var response orderDTO.OrderResponse
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "refunded", response.Status)
				assert.Equal(t, "refunded", response.PaymentStatus)
				assert.Equal(t, int64(5000), response.RefundedCents)
				require.NotNil(t, response.RefundReason)
				assert.Equal(t, "order lost in transit", *response.RefundReason)
			})

			t.Logf("All 4 cancel and refund tests passed for %s", tc.dbDriver)
		})
	}
}
