// Package dto provides data transfer objects for payment HTTP request and
// response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/commerce/internal/validation"
)

// ProcessPaymentRequest contains the parameters for charging an order at
// checkout. The token is a single-use payment method token issued by the
// provider's client-side SDK; raw card data never reaches this API.
type ProcessPaymentRequest struct {
	OrderID    string         `json:"order_id" binding:"required"`
	UserID     *string        `json:"user_id"`
	MethodType string         `json:"method_type" binding:"required"`
	Provider   string         `json:"provider" binding:"required"`
	Token      string         `json:"token" binding:"required"`
	CustomerID *string        `json:"customer_id"`
	Metadata   map[string]any `json:"metadata"`
}

// Validate checks if the process payment request is valid.
func (r *ProcessPaymentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.OrderID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.MethodType, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Provider, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Token, validation.Required, customValidation.NotBlank),
	)
}
