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

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

// CreateSettlement turns a still-valid hold into a payment and its tickets.
// The conditional hold update is the guard: zero affected rows means the hold
// is gone, terminal, or past its deadline, and nothing else runs. Every later
// failure rolls the whole transaction back, so no ticket, payment, or seat
// mutation is ever partially applied.
func (p *PostgresPaymentRepository) CreateSettlement(ctx context.Context, holdID uuid.UUID, payment *domain.Payment) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE holds
			SET status = 'SETTLED'
			WHERE id = $1 AND status = 'ACTIVE' AND expires_at > now()
		`

		ct, err := tx.Exec(ctx, query, holdID)
		if err != nil {
			return err
		}

		if ct.RowsAffected() == 0 {
			var one int

			err = tx.QueryRow(ctx, `SELECT 1 FROM holds WHERE id = $1`, holdID).Scan(&one)
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrHoldNotFound
			}
			if err != nil {
				return err
			}

			return domain.ErrHoldExpired
		}

		query = `
			INSERT INTO payments (id, user_id, amount, method, status, installments, card_last_four, pix_code, pix_qr_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at
		`

		err = tx.QueryRow(
			ctx,
			query,
			payment.ID,
			payment.UserID,
			payment.Amount,
			payment.Method,
			payment.Status,
			payment.Installments,
			payment.CardLastFour,
			payment.PixCode,
			payment.PixQrCode,
		).Scan(&payment.CreatedAt)

		if err != nil {
			return err
		}

		ticketRows := make([][]any, 0, len(payment.Tickets))
		for _, t := range payment.Tickets {
			ticketRows = append(ticketRows, []any{
				t.ID,
				payment.ID,
				t.PurchaseID,
				t.SessionID,
				t.UserID,
				t.Type,
				t.Price,
				t.Seat.Row,
				t.Seat.Number,
				t.Status,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"tickets"},
			[]string{
				"id", "payment_id", "purchase_id", "session_id", "user_id",
				"ticket_type", "price", "seat_row", "seat_number", "status",
			},
			pgx.CopyFromRows(ticketRows),
		)
		if err != nil {
			return err
		}

		occupied := 0

		for _, t := range payment.Tickets {
			query = `
				UPDATE seats
				SET status = 'OCCUPIED', ticket_id = $1, hold_id = NULL
				WHERE session_id = $2
					AND seat_row = $3
					AND seat_number = $4
					AND hold_id = $5
					AND status = 'RESERVED'
			`

			ct, err = tx.Exec(ctx, query, t.ID, t.SessionID, t.Seat.Row, t.Seat.Number, holdID)
			if err != nil {
				return err
			}

			occupied += int(ct.RowsAffected())
		}

		if occupied != len(payment.Tickets) {
			return fmt.Errorf(
				"settlement covered %d of %d held seats: %w",
				occupied,
				len(payment.Tickets),
				domain.ErrHoldExpired,
			)
		}

		return nil
	})
}

func (p *PostgresPaymentRepository) GetById(ctx context.Context, id, userID uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, user_id, amount, method, status, installments, card_last_four,
			pix_code, pix_qr_code, created_at, updated_at
		FROM payments
		WHERE id = $1 AND user_id = $2
	`

	var payment domain.Payment

	err := p.db.QueryRow(ctx, query, id, userID).Scan(
		&payment.ID,
		&payment.UserID,
		&payment.Amount,
		&payment.Method,
		&payment.Status,
		&payment.Installments,
		&payment.CardLastFour,
		&payment.PixCode,
		&payment.PixQrCode,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) GetWithTickets(ctx context.Context, id, userID uuid.UUID) (*domain.Payment, error) {
	payment, err := p.GetById(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, payment_id, purchase_id, session_id, user_id, ticket_type,
			price, seat_row, seat_number, status, created_at
		FROM tickets
		WHERE payment_id = $1
		ORDER BY seat_row, seat_number
	`

	rows, err := p.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)

	for rows.Next() {
		var t domain.Ticket

		err = rows.Scan(
			&t.ID,
			&t.PaymentID,
			&t.PurchaseID,
			&t.SessionID,
			&t.UserID,
			&t.Type,
			&t.Price,
			&t.Seat.Row,
			&t.Seat.Number,
			&t.Status,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	payment.Tickets = tickets

	return payment, nil
}

func (p *PostgresPaymentRepository) UpdateStatusByPixCode(ctx context.Context, pixCode string, status domain.PaymentStatus) error {
	query := `
		UPDATE payments
		SET status = $2, updated_at = now()
		WHERE pix_code = $1 AND status = 'PENDING'
	`

	ct, err := p.db.Exec(ctx, query, pixCode, status)
	if err != nil {
		return err
	}

	if ct.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}
