package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRecordNotFound           = errors.New("record not found")
	ErrHoldNotFound             = errors.New("hold not found")
	ErrHoldExpired              = errors.New("hold has expired or is no longer active")
	ErrHoldOwnershipMismatch    = errors.New("hold belongs to another user")
	ErrAmountMismatch           = errors.New("declared amount does not match ticket prices")
	ErrPaymentDetailsMissing    = errors.New("card details are required for credit and debit payments")
	ErrInvalidInstallments      = errors.New("installments must be between 1 and 12")
	ErrPaymentNotFound          = errors.New("payment not found")
	ErrTicketNotFound           = errors.New("ticket not found")
	ErrTicketAccessDenied       = errors.New("ticket belongs to another user")
	ErrTicketAlreadyUsed        = errors.New("ticket has already been used")
	ErrSessionAlreadyStarted    = errors.New("session has already started")
	ErrCancellationWindowClosed = errors.New("tickets can only be cancelled up to 24 hours before the session")
	ErrPromotionNotApplicable   = errors.New("invalid or expired promotion")
)

// SeatsUnavailableError is returned when a hold request loses the race for
// one or more of its seats. It carries the conflicting seat references so
// the caller can show which selections to retry.
type SeatsUnavailableError struct {
	Seats []SeatRef
}

func (e *SeatsUnavailableError) Error() string {
	if len(e.Seats) == 0 {
		return "some of the selected seats are not available"
	}

	return fmt.Sprintf("seats not available: %s", joinSeatRefs(e.Seats))
}

// InvalidSeatReferenceError is returned when a requested seat lies outside
// the room's declared row and seats-per-row bounds.
type InvalidSeatReferenceError struct {
	Seats []SeatRef
}

func (e *InvalidSeatReferenceError) Error() string {
	return fmt.Sprintf("seats outside of the room layout: %s", joinSeatRefs(e.Seats))
}

func joinSeatRefs(refs []SeatRef) string {
	labels := make([]string, len(refs))
	for i, ref := range refs {
		labels[i] = ref.String()
	}

	return strings.Join(labels, ", ")
}
