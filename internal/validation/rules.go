// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/commerce/internal/errors"
)

var (
	// currencyRegex matches three-letter uppercase ISO 4217 currency codes
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// CurrencyCode validates that a string is a three-letter ISO 4217 currency code
var CurrencyCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return currencyRegex.MatchString(s)
	},
	validation.NewError("validation_currency_code", "must be a three-letter ISO currency code"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// PositiveAmount validates that a monetary amount in minor units is greater than zero
type PositiveAmount struct{}

// Validate checks that the value is a positive int64 amount
func (p PositiveAmount) Validate(value interface{}) error {
	amount, ok := value.(int64)
	if !ok {
		return validation.NewError("validation_amount_type", "amount must be an integer of minor units")
	}

	if amount <= 0 {
		return validation.NewError("validation_amount_positive", "amount must be greater than zero")
	}

	return nil
}
