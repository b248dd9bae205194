package repository

import (
	"context"
	"errors"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresCatalogRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogRepository(db *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{
		db: db,
	}
}

func (p *PostgresCatalogRepository) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT s.id, s.movie_id, s.movie_title, s.cinema_id, s.room_id, s.starts_at,
			r.seat_rows, r.seats_per_row
		FROM sessions s
		JOIN rooms r ON s.room_id = r.id
		WHERE s.id = $1
	`

	var session domain.Session

	err := p.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.MovieID,
		&session.MovieTitle,
		&session.CinemaID,
		&session.RoomID,
		&session.StartsAt,
		&session.Geometry.Rows,
		&session.Geometry.SeatsPerRow,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &session, nil
}
