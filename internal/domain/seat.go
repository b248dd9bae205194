package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "AVAILABLE"
	SeatStatusReserved  SeatStatus = "RESERVED"
	SeatStatusOccupied  SeatStatus = "OCCUPIED"
)

// SeatRef addresses a single seat within a session: a row letter (A..Z)
// and a 1-based seat number within that row.
type SeatRef struct {
	Row    string
	Number int
}

func (r SeatRef) String() string {
	return fmt.Sprintf("%s%d", r.Row, r.Number)
}

type Seat struct {
	SessionID uuid.UUID
	Row       string
	Number    int
	Status    SeatStatus
	HoldID    *uuid.UUID
	TicketID  *uuid.UUID
}

// RoomGeometry is the declared layout of a room: the number of rows and
// the number of seats in each row. The full seat grid of a session is
// derived from it; seats only get persisted once a hold first touches them.
type RoomGeometry struct {
	Rows        int
	SeatsPerRow int
}

// RowLabel converts a 1-based row index to its letter (1 -> A, 2 -> B, ...).
func RowLabel(row int) string {
	return string(rune('A' + row - 1))
}

// BuildSeatMap produces the full seat roster for a session by overlaying the
// persisted seats onto the grid implied by the room geometry. Seats that were
// never persisted are synthesized as AVAILABLE. The result is ordered by row
// letter ascending, then seat number ascending, and is stable across calls.
func BuildSeatMap(sessionID uuid.UUID, geometry RoomGeometry, persisted []Seat) []Seat {
	type key struct {
		row    string
		number int
	}

	overlay := make(map[key]Seat, len(persisted))
	for _, seat := range persisted {
		overlay[key{seat.Row, seat.Number}] = seat
	}

	seats := make([]Seat, 0, geometry.Rows*geometry.SeatsPerRow)

	for row := 1; row <= geometry.Rows; row++ {
		label := RowLabel(row)

		for number := 1; number <= geometry.SeatsPerRow; number++ {
			if seat, ok := overlay[key{label, number}]; ok {
				seats = append(seats, seat)
				continue
			}

			seats = append(seats, Seat{
				SessionID: sessionID,
				Row:       label,
				Number:    number,
				Status:    SeatStatusAvailable,
			})
		}
	}

	return seats
}

// ValidateSeatRefs checks that every requested seat lies within the room
// bounds and that no seat is requested twice. It returns an
// InvalidSeatReferenceError listing the offending seats.
func ValidateSeatRefs(geometry RoomGeometry, refs []SeatRef) error {
	var invalid []SeatRef
	seen := make(map[SeatRef]bool, len(refs))

	for _, ref := range refs {
		if seen[ref] {
			invalid = append(invalid, ref)
			continue
		}
		seen[ref] = true

		if len(ref.Row) != 1 || ref.Row[0] < 'A' || ref.Row[0] > 'Z' {
			invalid = append(invalid, ref)
			continue
		}

		row := int(ref.Row[0]-'A') + 1
		if row > geometry.Rows || ref.Number < 1 || ref.Number > geometry.SeatsPerRow {
			invalid = append(invalid, ref)
		}
	}

	if len(invalid) > 0 {
		return &InvalidSeatReferenceError{Seats: invalid}
	}

	return nil
}

type SeatRepository interface {
	GetSeatsBySession(ctx context.Context, sessionID uuid.UUID) ([]Seat, error)
}
