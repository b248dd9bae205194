package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresHoldRepository struct {
	db *pgxpool.Pool
}

func NewPostgresHoldRepository(db *pgxpool.Pool) *PostgresHoldRepository {
	return &PostgresHoldRepository{
		db: db,
	}
}

// Create reserves every seat of the hold or none of them. The conditional
// UPDATE scoped to status = 'AVAILABLE' is the serialization point: when two
// holds race for overlapping seats, the loser affects fewer rows than it
// requested and the whole transaction rolls back.
func (p *PostgresHoldRepository) Create(ctx context.Context, hold domain.Hold) error {
	seatRows, seatNumbers := splitSeatRefs(hold.Seats)

	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		// Self-heal first: lapsed holds must not block the requested seats.
		_, err := releaseExpiredHolds(ctx, tx, &hold.SessionID)
		if err != nil {
			return err
		}

		// Materialize seats the grid has never persisted before.
		query := `
			INSERT INTO seats (session_id, seat_row, seat_number, status)
			SELECT $1, req.seat_row, req.seat_number, 'AVAILABLE'
			FROM unnest($2::text[], $3::int[]) AS req(seat_row, seat_number)
			ON CONFLICT (session_id, seat_row, seat_number) DO NOTHING
		`

		_, err = tx.Exec(ctx, query, hold.SessionID, seatRows, seatNumbers)
		if err != nil {
			// The session can vanish between the catalog lookup and the insert.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return domain.ErrRecordNotFound
			}

			return err
		}

		// Pre-read conflicts so the caller learns which seats are taken.
		query = `
			SELECT s.seat_row, s.seat_number
			FROM seats s
			JOIN unnest($2::text[], $3::int[]) AS req(seat_row, seat_number)
				ON s.seat_row = req.seat_row AND s.seat_number = req.seat_number
			WHERE s.session_id = $1 AND s.status <> 'AVAILABLE'
		`

		rows, err := tx.Query(ctx, query, hold.SessionID, seatRows, seatNumbers)
		if err != nil {
			return err
		}

		conflicts, err := scanSeatRefs(rows)
		if err != nil {
			return err
		}

		if len(conflicts) > 0 {
			return &domain.SeatsUnavailableError{Seats: conflicts}
		}

		query = `
			UPDATE seats s
			SET status = 'RESERVED', hold_id = $4
			FROM unnest($2::text[], $3::int[]) AS req(seat_row, seat_number)
			WHERE s.session_id = $1
				AND s.seat_row = req.seat_row
				AND s.seat_number = req.seat_number
				AND s.status = 'AVAILABLE'
		`

		ct, err := tx.Exec(ctx, query, hold.SessionID, seatRows, seatNumbers, hold.ID)
		if err != nil {
			return err
		}

		// A concurrent writer may have won the race on a subset between the
		// pre-read and the update. All-or-nothing: abort the whole hold.
		if int(ct.RowsAffected()) != len(hold.Seats) {
			return &domain.SeatsUnavailableError{}
		}

		query = `
			INSERT INTO holds (id, session_id, user_id, status, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`

		_, err = tx.Exec(ctx, query, hold.ID, hold.SessionID, hold.UserID, hold.Status, hold.CreatedAt, hold.ExpiresAt)
		if err != nil {
			return err
		}

		holdSeats := make([][]any, 0, len(hold.Seats))
		for i, seat := range hold.Seats {
			holdSeats = append(holdSeats, []any{hold.ID, i, seat.Row, seat.Number})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"hold_seats"},
			[]string{"hold_id", "position", "seat_row", "seat_number"},
			pgx.CopyFromRows(holdSeats),
		)
		if err != nil {
			return err
		}

		holdTickets := make([][]any, 0, len(hold.TicketTypes))
		for i, tc := range hold.TicketTypes {
			holdTickets = append(holdTickets, []any{hold.ID, i, tc.Type, tc.Count})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"hold_tickets"},
			[]string{"hold_id", "position", "ticket_type", "quantity"},
			pgx.CopyFromRows(holdTickets),
		)

		return err
	})
}

func (p *PostgresHoldRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.Hold, error) {
	query := `
		SELECT id, session_id, user_id, status, created_at, expires_at
		FROM holds
		WHERE id = $1
	`

	var hold domain.Hold

	err := p.db.QueryRow(ctx, query, id).Scan(
		&hold.ID,
		&hold.SessionID,
		&hold.UserID,
		&hold.Status,
		&hold.CreatedAt,
		&hold.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHoldNotFound
		}

		return nil, err
	}

	query = `
		SELECT seat_row, seat_number
		FROM hold_seats
		WHERE hold_id = $1
		ORDER BY position
	`

	rows, err := p.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}

	hold.Seats, err = scanSeatRefs(rows)
	if err != nil {
		return nil, err
	}

	query = `
		SELECT ticket_type, quantity
		FROM hold_tickets
		WHERE hold_id = $1
		ORDER BY position
	`

	rows, err = p.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ticketTypes := make([]domain.TicketTypeCount, 0)

	for rows.Next() {
		var tc domain.TicketTypeCount

		err = rows.Scan(&tc.Type, &tc.Count)
		if err != nil {
			return nil, err
		}

		ticketTypes = append(ticketTypes, tc)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	hold.TicketTypes = ticketTypes

	return &hold, nil
}

func (p *PostgresHoldRepository) Release(ctx context.Context, id, userID uuid.UUID) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var ownerID uuid.UUID
		var status domain.HoldStatus

		query := `SELECT user_id, status FROM holds WHERE id = $1 FOR UPDATE`

		err := tx.QueryRow(ctx, query, id).Scan(&ownerID, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrHoldNotFound
			}

			return err
		}

		if ownerID != userID {
			return domain.ErrHoldOwnershipMismatch
		}

		if status != domain.HoldStatusActive {
			return domain.ErrHoldNotFound
		}

		return releaseHold(ctx, tx, id, domain.HoldStatusReleased)
	})
}

// Expire releases the hold's seats and marks it EXPIRED, but only when it is
// ACTIVE and past its deadline. Redundant calls and calls on terminal holds
// are no-ops.
func (p *PostgresHoldRepository) Expire(ctx context.Context, id uuid.UUID) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			SELECT 1
			FROM holds
			WHERE id = $1 AND status = 'ACTIVE' AND expires_at < now()
			FOR UPDATE
		`

		var one int

		err := tx.QueryRow(ctx, query, id).Scan(&one)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}

			return err
		}

		return releaseHold(ctx, tx, id, domain.HoldStatusExpired)
	})
}

func (p *PostgresHoldRepository) ReleaseExpiredBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var released int

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var err error
		released, err = releaseExpiredHolds(ctx, tx, &sessionID)

		return err
	})

	return released, err
}

func (p *PostgresHoldRepository) ReleaseAllExpired(ctx context.Context) (int, error) {
	var released int

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var err error
		released, err = releaseExpiredHolds(ctx, tx, nil)

		return err
	})

	return released, err
}

func releaseHold(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.HoldStatus) error {
	query := `UPDATE holds SET status = $2 WHERE id = $1`

	_, err := tx.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}

	query = `
		UPDATE seats
		SET status = 'AVAILABLE', hold_id = NULL
		WHERE hold_id = $1 AND status = 'RESERVED'
	`

	_, err = tx.Exec(ctx, query, id)

	return err
}

// releaseExpiredHolds expires every lapsed ACTIVE hold, optionally scoped to
// one session, and frees its seats. It returns the number of holds expired.
func releaseExpiredHolds(ctx context.Context, tx pgx.Tx, sessionID *uuid.UUID) (int, error) {
	query := `
		UPDATE holds
		SET status = 'EXPIRED'
		WHERE status = 'ACTIVE' AND expires_at < now() AND ($1::uuid IS NULL OR session_id = $1)
		RETURNING id
	`

	rows, err := tx.Query(ctx, query, sessionID)
	if err != nil {
		return 0, err
	}

	lapsed := make([]uuid.UUID, 0)

	for rows.Next() {
		var id uuid.UUID

		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}

		lapsed = append(lapsed, id)
	}

	rows.Close()

	if err = rows.Err(); err != nil {
		return 0, err
	}

	if len(lapsed) == 0 {
		return 0, nil
	}

	query = `
		UPDATE seats
		SET status = 'AVAILABLE', hold_id = NULL
		WHERE hold_id = ANY($1) AND status = 'RESERVED'
	`

	_, err = tx.Exec(ctx, query, lapsed)
	if err != nil {
		return 0, fmt.Errorf("failed to release seats of expired holds: %w", err)
	}

	return len(lapsed), nil
}

func splitSeatRefs(refs []domain.SeatRef) ([]string, []int) {
	seatRows := make([]string, len(refs))
	seatNumbers := make([]int, len(refs))

	for i, ref := range refs {
		seatRows[i] = ref.Row
		seatNumbers[i] = ref.Number
	}

	return seatRows, seatNumbers
}

func scanSeatRefs(rows pgx.Rows) ([]domain.SeatRef, error) {
	defer rows.Close()

	refs := make([]domain.SeatRef, 0)

	for rows.Next() {
		var ref domain.SeatRef

		err := rows.Scan(&ref.Row, &ref.Number)
		if err != nil {
			return nil, err
		}

		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return refs, nil
}
