package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresPromotionValidator struct {
	db *pgxpool.Pool
}

func NewPostgresPromotionValidator(db *pgxpool.Pool) *PostgresPromotionValidator {
	return &PostgresPromotionValidator{
		db: db,
	}
}

// Validate resolves a promotion code into a discount percentage. Applicability
// (active flag, validity window, movie restriction) is checked in one place so
// settlement can treat this as a pure lookup.
func (p *PostgresPromotionValidator) Validate(
	ctx context.Context,
	code string,
	movieID uuid.UUID,
	at time.Time) (decimal.Decimal, error) {

	query := `
		SELECT id, code, description, discount_percent, is_active, valid_from, valid_until, applicable_movies
		FROM promotions
		WHERE code = $1
	`

	var promotion domain.Promotion

	err := p.db.QueryRow(ctx, query, code).Scan(
		&promotion.ID,
		&promotion.Code,
		&promotion.Description,
		&promotion.DiscountPercent,
		&promotion.IsActive,
		&promotion.ValidFrom,
		&promotion.ValidUntil,
		&promotion.ApplicableMovies,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrPromotionNotApplicable
		}

		return decimal.Zero, err
	}

	if !promotion.AppliesTo(movieID, at) {
		return decimal.Zero, domain.ErrPromotionNotApplicable
	}

	return promotion.DiscountPercent, nil
}
