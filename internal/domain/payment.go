package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodPix    PaymentMethod = "PIX"
	PaymentMethodCredit PaymentMethod = "CREDIT"
	PaymentMethodDebit  PaymentMethod = "DEBIT"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// CardDetails carries the payment-method-specific fields of a settlement
// request. All fields are required for CREDIT and DEBIT; PIX needs none.
type CardDetails struct {
	Number       string
	Name         string
	Expiry       string
	CVV          string
	Installments int
}

type Payment struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Amount       decimal.Decimal
	Method       PaymentMethod
	Status       PaymentStatus
	Installments *int
	CardLastFour *string
	PixCode      *string
	PixQrCode    *string
	Tickets      []Ticket
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// ValidateCardDetails applies the method-specific requirements. CREDIT and
// DEBIT require the full card fields; CREDIT additionally allows 1..12
// installments (DEBIT always settles in one). PIX takes no details.
func ValidateCardDetails(method PaymentMethod, details *CardDetails) error {
	if method == PaymentMethodPix {
		return nil
	}

	if details == nil || details.Number == "" || details.Name == "" || details.Expiry == "" || details.CVV == "" {
		return ErrPaymentDetailsMissing
	}

	// The last four digits end up on the payment record.
	if len(details.Number) < 4 {
		return ErrPaymentDetailsMissing
	}

	if method == PaymentMethodCredit {
		installments := details.Installments
		if installments == 0 {
			installments = 1
		}

		if installments < 1 || installments > 12 {
			return ErrInvalidInstallments
		}
	}

	return nil
}

type PaymentRepository interface {
	// CreateSettlement finalizes a hold into a payment and its tickets in one
	// transaction: the hold is conditionally marked SETTLED (failing with
	// ErrHoldExpired if it is no longer ACTIVE or past its deadline), the
	// payment and tickets are inserted, and every held seat flips
	// RESERVED -> OCCUPIED carrying its ticket id.
	CreateSettlement(ctx context.Context, holdID uuid.UUID, payment *Payment) error

	GetById(ctx context.Context, id, userID uuid.UUID) (*Payment, error)
	GetWithTickets(ctx context.Context, id, userID uuid.UUID) (*Payment, error)

	// UpdateStatusByPixCode resolves a PENDING PIX payment after the external
	// confirmation webhook fires.
	UpdateStatusByPixCode(ctx context.Context, pixCode string, status PaymentStatus) error
}
