package dto

import (
	"time"

	orderDomain "github.com/allisson/commerce/internal/order/domain"
)

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID                 string    `json:"id"`
	UserID             *string   `json:"user_id,omitempty"`
	ShippingAddressID  string    `json:"shipping_address_id"`
	BillingAddressID   *string   `json:"billing_address_id,omitempty"`
	SubtotalCents      int64     `json:"subtotal_cents"`
	TaxCents           int64     `json:"tax_cents"`
	ShippingCents      int64     `json:"shipping_cents"`
	TotalCents         int64     `json:"total_cents"`
	Currency           string    `json:"currency"`
	Status             string    `json:"status"`
	PaymentStatus      string    `json:"payment_status"`
	RefundedCents      int64     `json:"refunded_cents"`
	TrackingNumber     *string   `json:"tracking_number,omitempty"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
	RefundReason       *string   `json:"refund_reason,omitempty"`
	Version            int64     `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// OrderListResponse represents a paginated list of orders.
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Count  int             `json:"count"`
}

// MapOrderToResponse converts a domain order to an API response.
func MapOrderToResponse(order *orderDomain.Order) OrderResponse {
	response := OrderResponse{
		ID:                 order.ID.String(),
		ShippingAddressID:  order.ShippingAddressID.String(),
		SubtotalCents:      order.SubtotalCents,
		TaxCents:           order.TaxCents,
		ShippingCents:      order.ShippingCents,
		TotalCents:         order.TotalCents,
		Currency:           order.Currency,
		Status:             string(order.Status),
		PaymentStatus:      string(order.PaymentStatus),
		RefundedCents:      order.RefundedCents,
		TrackingNumber:     order.TrackingNumber,
		CancellationReason: order.CancellationReason,
		RefundReason:       order.RefundReason,
		Version:            order.Version,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if order.UserID != nil {
		userID := order.UserID.String()
		response.UserID = &userID
	}
	if order.BillingAddressID != nil {
		billingAddressID := order.BillingAddressID.String()
		response.BillingAddressID = &billingAddressID
	}
	return response
}

// MapOrdersToListResponse converts a slice of domain orders to a list response.
func MapOrdersToListResponse(orders []*orderDomain.Order) OrderListResponse {
	responses := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, MapOrderToResponse(order))
	}
	return OrderListResponse{
		Orders: responses,
		Count:  len(responses),
	}
}
