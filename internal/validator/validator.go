package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_row", validateSeatRow)
	validator.RegisterValidation("ticket_type", validateTicketType)
	validator.RegisterValidation("payment_method", validatePaymentMethod)

	return validator
}

func validateSeatRow(fl validator.FieldLevel) bool {
	row := fl.Field().String()

	return len(row) == 1 && row[0] >= 'A' && row[0] <= 'Z'
}

func validateTicketType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "ADULT", "CHILD", "SENIOR", "STUDENT":
		return true
	}

	return false
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "PIX", "CREDIT", "DEBIT":
		return true
	}

	return false
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s items", err.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s items", err.Param())
	case "uuid":
		return "must be a valid UUID"
	case "seat_row":
		return "must be a single row letter between A and Z"
	case "ticket_type":
		return "must be one of ADULT, CHILD, SENIOR, STUDENT"
	case "payment_method":
		return "must be one of PIX, CREDIT, DEBIT"
	case "oneof":
		return fmt.Sprintf("must be one of %s", err.Param())
	default:
		return "is invalid"
	}
}
