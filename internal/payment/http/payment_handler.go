// Package http provides HTTP handlers for payment processing operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/httputil"
	"github.com/allisson/commerce/internal/payment/http/dto"
	paymentUseCase "github.com/allisson/commerce/internal/payment/usecase"
	customValidation "github.com/allisson/commerce/internal/validation"
)

// PaymentHandler handles HTTP requests for payment processing operations.
type PaymentHandler struct {
	paymentUseCase paymentUseCase.PaymentUseCase
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler with required dependencies.
func NewPaymentHandler(paymentUseCase paymentUseCase.PaymentUseCase, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUseCase: paymentUseCase,
		logger:         logger,
	}
}

// ProcessHandler charges an order synchronously through the payment gateway.
// POST /v1/payments/process
// Returns 201 Created with the payment in its post-gateway state. A declined or
// errored charge surfaces as a gateway error after the failed payment is
// persisted, so retrying creates a fresh payment attempt.
func (h *PaymentHandler) ProcessHandler(c *gin.Context) {
	var req dto.ProcessPaymentRequest

	// Parse and bind JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := mapProcessRequestToInput(&req)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	payment, err := h.paymentUseCase.ProcessPayment(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapPaymentToResponse(payment))
}

// GetHandler retrieves a payment by its id.
// GET /v1/payments/:id
// Returns 200 OK with the payment.
func (h *PaymentHandler) GetHandler(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid payment id: must be a valid uuid"),
			h.logger,
		)
		return
	}

	payment, err := h.paymentUseCase.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPaymentToResponse(payment))
}

// ListByOrderHandler retrieves all payment attempts for one order.
// GET /v1/orders/:id/payments
// Returns 200 OK with the payment list.
func (h *PaymentHandler) ListByOrderHandler(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid order id: must be a valid uuid"),
			h.logger,
		)
		return
	}

	payments, err := h.paymentUseCase.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapPaymentsToListResponse(payments))
}

func mapProcessRequestToInput(req *dto.ProcessPaymentRequest) (paymentUseCase.ProcessPaymentInput, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return paymentUseCase.ProcessPaymentInput{}, fmt.Errorf("invalid order_id: must be a valid uuid")
	}

	input := paymentUseCase.ProcessPaymentInput{
		OrderID:    orderID,
		MethodType: req.MethodType,
		Provider:   req.Provider,
		Token:      req.Token,
		CustomerID: req.CustomerID,
		Metadata:   req.Metadata,
	}

	if req.UserID != nil {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			return paymentUseCase.ProcessPaymentInput{}, fmt.Errorf("invalid user_id: must be a valid uuid")
		}
		input.UserID = &userID
	}

	return input, nil
}
