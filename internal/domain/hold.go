package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "ACTIVE"
	HoldStatusSettled  HoldStatus = "SETTLED"
	HoldStatusExpired  HoldStatus = "EXPIRED"
	HoldStatusReleased HoldStatus = "RELEASED"
)

// HoldTTL is the fixed lifetime of a hold. Expiry is wall-clock based and
// evaluated at every read/write boundary touching the hold, so settlement
// after this window always fails even if no sweep has run yet.
const HoldTTL = 15 * time.Minute

// Hold is a temporary exclusive claim on a set of seats. Seats stay in the
// request order and ticket types in their declaration order; settlement
// pairs them positionally.
type Hold struct {
	ID          uuid.UUID
	SessionID   uuid.UUID
	UserID      uuid.UUID
	Seats       []SeatRef
	TicketTypes []TicketTypeCount
	Status      HoldStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

type TicketTypeCount struct {
	Type  TicketType
	Count int
}

func NewHold(sessionID, userID uuid.UUID, seats []SeatRef, ticketTypes []TicketTypeCount) Hold {
	now := time.Now()

	return Hold{
		ID:          uuid.New(),
		SessionID:   sessionID,
		UserID:      userID,
		Seats:       seats,
		TicketTypes: ticketTypes,
		Status:      HoldStatusActive,
		CreatedAt:   now,
		ExpiresAt:   now.Add(HoldTTL),
	}
}

func (h Hold) IsExpired(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

// ValidateTicketTypeCounts checks that every count is positive and that the
// counts sum up to the number of requested seats.
func ValidateTicketTypeCounts(ticketTypes []TicketTypeCount, seatCount int) error {
	total := 0

	for _, tc := range ticketTypes {
		if tc.Count < 1 {
			return fmt.Errorf("ticket type %s has a non-positive count", tc.Type)
		}
		if _, ok := TicketRates[tc.Type]; !ok {
			return fmt.Errorf("unknown ticket type: %s", tc.Type)
		}

		total += tc.Count
	}

	if total != seatCount {
		return fmt.Errorf("ticket counts sum to %d but %d seats were requested", total, seatCount)
	}

	return nil
}

type HoldRepository interface {
	// Create persists the hold and flips all of its seats AVAILABLE -> RESERVED
	// in one transaction. It either reserves every requested seat or none,
	// returning a SeatsUnavailableError with the conflicting seats.
	Create(ctx context.Context, hold Hold) error

	GetById(ctx context.Context, id uuid.UUID) (*Hold, error)

	// Release voluntarily releases an ACTIVE hold owned by the given user,
	// returning its seats to AVAILABLE.
	Release(ctx context.Context, id, userID uuid.UUID) error

	// Expire releases the hold's seats and marks it EXPIRED if it is ACTIVE
	// and past its deadline. Calling it on a terminal hold is a no-op.
	Expire(ctx context.Context, id uuid.UUID) error

	// ReleaseExpiredBySession self-heals the seat grid for one session by
	// expiring every lapsed ACTIVE hold that still pins seats in it.
	ReleaseExpiredBySession(ctx context.Context, sessionID uuid.UUID) (int, error)

	// ReleaseAllExpired is the hygiene sweep across all sessions. Correctness
	// never depends on it running.
	ReleaseAllExpired(ctx context.Context) (int, error)
}
