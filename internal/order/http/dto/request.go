// Package dto provides data transfer objects for order HTTP request and
// response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/commerce/internal/validation"
)

// CreateOrderRequest contains the parameters for creating an order.
type CreateOrderRequest struct {
	UserID            *string `json:"user_id"`
	ShippingAddressID string  `json:"shipping_address_id" binding:"required"`
	BillingAddressID  *string `json:"billing_address_id"`
	SubtotalCents     int64   `json:"subtotal_cents" binding:"required"`
	TaxCents          int64   `json:"tax_cents"`
	ShippingCents     int64   `json:"shipping_cents"`
	Currency          string  `json:"currency" binding:"required"`
}

// Validate checks if the create order request is valid.
func (r *CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ShippingAddressID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.SubtotalCents, customValidation.PositiveAmount{}),
		validation.Field(&r.Currency, validation.Required, customValidation.CurrencyCode),
	)
}

// ShipOrderRequest contains the parameters for marking an order shipped.
type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// Validate checks if the ship order request is valid.
func (r *ShipOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TrackingNumber, validation.Required, customValidation.NotBlank),
	)
}

// CancelOrderRequest contains the parameters for cancelling an order.
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Validate checks if the cancel order request is valid.
func (r *CancelOrderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
	)
}

// RefundOrderRequest contains the parameters for refunding an order. A nil
// AmountCents requests a full refund.
type RefundOrderRequest struct {
	AmountCents *int64 `json:"amount_cents"`
	Reason      string `json:"reason" binding:"required"`
}

// Validate checks if the refund order request is valid.
func (r *RefundOrderRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
	)
	if err != nil {
		return err
	}
	if r.AmountCents != nil {
		return validation.Validate(*r.AmountCents, customValidation.PositiveAmount{})
	}
	return nil
}
