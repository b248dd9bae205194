package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTicketRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTicketRepository(db *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{
		db: db,
	}
}

func (p *PostgresTicketRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.TicketSummary, error) {
	query := `
		SELECT t.id, t.payment_id, t.purchase_id, t.session_id, t.user_id,
			t.ticket_type, t.price, t.seat_row, t.seat_number, t.status,
			t.created_at, s.movie_title, s.starts_at
		FROM tickets t
		JOIN sessions s ON t.session_id = s.id
		WHERE t.id = $1
	`

	var ticket domain.TicketSummary

	err := p.db.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.PaymentID,
		&ticket.PurchaseID,
		&ticket.SessionID,
		&ticket.UserID,
		&ticket.Type,
		&ticket.Price,
		&ticket.Seat.Row,
		&ticket.Seat.Number,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.MovieTitle,
		&ticket.SessionStartsAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}

		return nil, err
	}

	return &ticket, nil
}

func (p *PostgresTicketRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	status *domain.TicketStatus) ([]domain.TicketSummary, error) {

	query := `
		SELECT t.id, t.payment_id, t.purchase_id, t.session_id, t.user_id,
			t.ticket_type, t.price, t.seat_row, t.seat_number, t.status,
			t.created_at, s.movie_title, s.starts_at
		FROM tickets t
		JOIN sessions s ON t.session_id = s.id
		WHERE t.user_id = $1 AND ($2::text IS NULL OR t.status = $2)
		ORDER BY t.created_at DESC
	`

	rows, err := p.db.Query(ctx, query, userID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.TicketSummary, 0)

	for rows.Next() {
		var ticket domain.TicketSummary

		err = rows.Scan(
			&ticket.ID,
			&ticket.PaymentID,
			&ticket.PurchaseID,
			&ticket.SessionID,
			&ticket.UserID,
			&ticket.Type,
			&ticket.Price,
			&ticket.Seat.Row,
			&ticket.Seat.Number,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.MovieTitle,
			&ticket.SessionStartsAt,
		)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

// Cancel reverses a settled ticket: the ticket flips to CANCELLED, its seat
// returns to AVAILABLE, and the owning payment becomes REFUNDED. The refund
// covers the whole payment even when sibling tickets stay active.
func (p *PostgresTicketRepository) Cancel(ctx context.Context, ticketID uuid.UUID) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE tickets
			SET status = 'CANCELLED'
			WHERE id = $1 AND status = 'ACTIVE'
			RETURNING payment_id, session_id, seat_row, seat_number
		`

		var paymentID, sessionID uuid.UUID
		var seatRow string
		var seatNumber int

		err := tx.QueryRow(ctx, query, ticketID).Scan(&paymentID, &sessionID, &seatRow, &seatNumber)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTicketNotFound
			}

			return err
		}

		query = `
			UPDATE seats
			SET status = 'AVAILABLE', ticket_id = NULL
			WHERE session_id = $1 AND seat_row = $2 AND seat_number = $3 AND ticket_id = $4
		`

		ct, err := tx.Exec(ctx, query, sessionID, seatRow, seatNumber, ticketID)
		if err != nil {
			return err
		}

		if ct.RowsAffected() != 1 {
			return fmt.Errorf("seat %s%d is not occupied by ticket %s", seatRow, seatNumber, ticketID)
		}

		query = `
			UPDATE payments
			SET status = 'REFUNDED', updated_at = now()
			WHERE id = $1
		`

		_, err = tx.Exec(ctx, query, paymentID)

		return err
	})
}
