package repository

import (
	"context"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresSeatRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSeatRepository(db *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{
		db: db,
	}
}

// GetSeatsBySession returns the persisted seats of a session ordered by row
// letter, then seat number. Seats the grid never materialized are absent;
// the caller overlays them onto the implied room layout.
func (p *PostgresSeatRepository) GetSeatsBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.Seat, error) {
	query := `
		SELECT session_id, seat_row, seat_number, status, hold_id, ticket_id
		FROM seats
		WHERE session_id = $1
		ORDER BY seat_row, seat_number
	`

	rows, err := p.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(
			&seat.SessionID,
			&seat.Row,
			&seat.Number,
			&seat.Status,
			&seat.HoldID,
			&seat.TicketID,
		)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
