// Package http provides HTTP handlers for order management operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/httputil"
	orderDomain "github.com/allisson/commerce/internal/order/domain"
	"github.com/allisson/commerce/internal/order/http/dto"
	orderUseCase "github.com/allisson/commerce/internal/order/usecase"
	customValidation "github.com/allisson/commerce/internal/validation"
)

// OrderHandler handles HTTP requests for order management operations.
type OrderHandler struct {
	orderUseCase orderUseCase.OrderUseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler with required dependencies.
func NewOrderHandler(orderUseCase orderUseCase.OrderUseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// CreateHandler creates a new pending order.
// POST /v1/orders
// Returns 201 Created with the order.
func (h *OrderHandler) CreateHandler(c *gin.Context) {
	var req dto.CreateOrderRequest

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

	input, err := mapCreateRequestToInput(&req)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.Create(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapOrderToResponse(order))
}

// GetHandler retrieves an order by its id.
// GET /v1/orders/:id
// Returns 200 OK with the order.
func (h *OrderHandler) GetHandler(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.GetByID(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// ListHandler retrieves orders with pagination support, newest first.
// GET /v1/orders?offset=0&limit=50
// Returns 200 OK with the paginated order list.
func (h *OrderHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	orders, err := h.orderUseCase.List(c.Request.Context(), limit, offset)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrdersToListResponse(orders))
}

// ShipHandler marks an order as shipped with a tracking number. Retrying the
// action against an already shipped order returns the current state unchanged.
// POST /v1/orders/:id/ship
// Returns 200 OK with the updated order.
func (h *OrderHandler) ShipHandler(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ShipOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	order, err := h.orderUseCase.Ship(c.Request.Context(), orderID, req.TrackingNumber)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// DeliverHandler marks a shipped order as delivered.
// POST /v1/orders/:id/deliver
// Returns 200 OK with the updated order.
func (h *OrderHandler) DeliverHandler(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.Deliver(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// CancelHandler cancels an order that has not shipped yet.
// POST /v1/orders/:id/cancel
// Returns 200 OK with the updated order.
func (h *OrderHandler) CancelHandler(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	order, err := h.orderUseCase.Cancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// ReturnHandler marks a shipped or delivered order as returned.
// POST /v1/orders/:id/return
// Returns 200 OK with the updated order.
func (h *OrderHandler) ReturnHandler(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	order, err := h.orderUseCase.Return(c.Request.Context(), orderID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

// RefundHandler refunds an order, fully when no amount is given and partially
// otherwise. A partial amount covering the remaining balance becomes a full
// refund.
// POST /v1/orders/:id/refund
// Returns 200 OK with the updated order.
func (h *OrderHandler) RefundHandler(c *gin.Context) {
	orderID, err := parseOrderID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.RefundOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	var order *orderDomain.Order
	if req.AmountCents != nil {
		order, err = h.orderUseCase.PartialRefund(c.Request.Context(), orderID, *req.AmountCents, req.Reason)
	} else {
		order, err = h.orderUseCase.Refund(c.Request.Context(), orderID, req.Reason)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapOrderToResponse(order))
}

func parseOrderID(c *gin.Context) (uuid.UUID, error) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid order id: must be a valid uuid")
	}
	return orderID, nil
}

func mapCreateRequestToInput(req *dto.CreateOrderRequest) (orderUseCase.CreateInput, error) {
	shippingAddressID, err := uuid.Parse(req.ShippingAddressID)
	if err != nil {
		return orderUseCase.CreateInput{}, fmt.Errorf("invalid shipping_address_id: must be a valid uuid")
	}

	input := orderUseCase.CreateInput{
		ShippingAddressID: shippingAddressID,
		SubtotalCents:     req.SubtotalCents,
		TaxCents:          req.TaxCents,
		ShippingCents:     req.ShippingCents,
		Currency:          req.Currency,
	}

	if req.UserID != nil {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			return orderUseCase.CreateInput{}, fmt.Errorf("invalid user_id: must be a valid uuid")
		}
		input.UserID = &userID
	}
	if req.BillingAddressID != nil {
		billingAddressID, err := uuid.Parse(*req.BillingAddressID)
		if err != nil {
			return orderUseCase.CreateInput{}, fmt.Errorf("invalid billing_address_id: must be a valid uuid")
		}
		input.BillingAddressID = &billingAddressID
	}

	return input, nil
}
