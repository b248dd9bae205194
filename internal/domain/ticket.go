package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketType string

const (
	TicketTypeAdult   TicketType = "ADULT"
	TicketTypeChild   TicketType = "CHILD"
	TicketTypeSenior  TicketType = "SENIOR"
	TicketTypeStudent TicketType = "STUDENT"
)

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "ACTIVE"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

// CancellationCutoff is how long before the session start a ticket can
// still be cancelled.
const CancellationCutoff = 24 * time.Hour

type Ticket struct {
	ID         uuid.UUID
	PaymentID  uuid.UUID
	PurchaseID uuid.UUID
	SessionID  uuid.UUID
	UserID     uuid.UUID
	Type       TicketType
	Price      decimal.Decimal
	Seat       SeatRef
	Status     TicketStatus
	CreatedAt  time.Time
}

// TicketSummary is a ticket joined with the session details needed for
// listings and cancellation policy checks.
type TicketSummary struct {
	Ticket
	MovieTitle      string
	SessionStartsAt time.Time
}

// AssignTicketTypes pairs each seat with a ticket type, walking the counts
// in their declaration order: the first count covers the first seats of the
// request, and so on. The caller must have validated that the counts sum to
// the seat count.
func AssignTicketTypes(seats []SeatRef, ticketTypes []TicketTypeCount) []TicketType {
	assigned := make([]TicketType, 0, len(seats))

	for _, tc := range ticketTypes {
		for i := 0; i < tc.Count && len(assigned) < len(seats); i++ {
			assigned = append(assigned, tc.Type)
		}
	}

	return assigned
}

// ValidateCancellation applies the cancellation policy to a ticket. It
// reports the first violated rule: ownership, ticket state, session already
// started, or the cutoff window.
func ValidateCancellation(ticket TicketSummary, userID uuid.UUID, now time.Time) error {
	if ticket.UserID != userID {
		return ErrTicketAccessDenied
	}

	if ticket.Status == TicketStatusUsed {
		return ErrTicketAlreadyUsed
	}

	if ticket.Status == TicketStatusCancelled {
		return ErrTicketNotFound
	}

	if now.After(ticket.SessionStartsAt) {
		return ErrSessionAlreadyStarted
	}

	if ticket.SessionStartsAt.Sub(now) < CancellationCutoff {
		return ErrCancellationWindowClosed
	}

	return nil
}

type TicketRepository interface {
	GetById(ctx context.Context, id uuid.UUID) (*TicketSummary, error)
	ListByUser(ctx context.Context, userID uuid.UUID, status *TicketStatus) ([]TicketSummary, error)

	// Cancel reverses a settled ticket in one transaction: the ticket becomes
	// CANCELLED, its seat returns to AVAILABLE, and the owning payment is
	// marked REFUNDED.
	Cancel(ctx context.Context, ticketID uuid.UUID) error
}
