package dto

import (
	"time"

	paymentDomain "github.com/allisson/commerce/internal/payment/domain"
)

// PaymentResponse represents a payment in API responses. Provider metadata is
// excluded; it can hold internal reconciliation fields.
type PaymentResponse struct {
	ID                string     `json:"id"`
	OrderID           string     `json:"order_id"`
	UserID            *string    `json:"user_id,omitempty"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	MethodType        string     `json:"method_type"`
	Provider          string     `json:"provider"`
	ExternalReference *string    `json:"external_reference,omitempty"`
	TransactionID     *string    `json:"transaction_id,omitempty"`
	Status            string     `json:"status"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	Version           int64      `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PaymentListResponse represents a list of payments for one order.
type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Count    int               `json:"count"`
}

// MapPaymentToResponse converts a domain payment to an API response.
func MapPaymentToResponse(payment *paymentDomain.Payment) PaymentResponse {
	response := PaymentResponse{
		ID:                payment.ID.String(),
		OrderID:           payment.OrderID.String(),
		AmountCents:       payment.AmountCents,
		Currency:          payment.Currency,
		MethodType:        payment.MethodType,
		Provider:          payment.Provider,
		ExternalReference: payment.ExternalReference,
		TransactionID:     payment.TransactionID,
		Status:            string(payment.Status),
		ErrorMessage:      payment.ErrorMessage,
		ProcessedAt:       payment.ProcessedAt,
		Version:           payment.Version,
		CreatedAt:         payment.CreatedAt,
		UpdatedAt:         payment.UpdatedAt,
	}
	if payment.UserID != nil {
		userID := payment.UserID.String()
		response.UserID = &userID
	}
	return response
}

// MapPaymentsToListResponse converts a slice of domain payments to a list response.
func MapPaymentsToListResponse(payments []*paymentDomain.Payment) PaymentListResponse {
	responses := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, MapPaymentToResponse(payment))
	}
	return PaymentListResponse{
		Payments: responses,
		Count:    len(responses),
	}
}
