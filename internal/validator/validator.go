package validator

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const maxSeatsPerRequest = 10

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	validator.RegisterValidation("amount", validateAmount)
	validator.RegisterValidation("seat_ids", validateSeatIds)

	return validator
}

// decimalValue exposes decimals to the validator as their string form.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}

	return nil
}

// validateAmount accepts non-negative decimals with at most two fraction digits.
func validateAmount(fl validator.FieldLevel) bool {
	amount, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}

	return !amount.IsNegative() && amount.Equal(amount.Round(2))
}

func validateSeatIds(fl validator.FieldLevel) bool {
	seatIDs, ok := fl.Field().Interface().([]int)
	if !ok {
		return false
	}

	if len(seatIDs) == 0 || len(seatIDs) > maxSeatsPerRequest {
		return false
	}

	seen := make(map[int]bool, len(seatIDs))
	for _, id := range seatIDs {
		if id < 1 || seen[id] {
			return false
		}
		seen[id] = true
	}

	return true
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "amount":
		return "must be a non-negative amount with at most two decimal places"
	case "seat_ids":
		return fmt.Sprintf("must contain between 1 and %d distinct positive seat IDs", maxSeatsPerRequest)
	default:
		return "is invalid"
	}
}
