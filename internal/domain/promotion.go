package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Promotion struct {
	ID               uuid.UUID
	Code             string
	Description      string
	DiscountPercent  decimal.Decimal
	IsActive         bool
	ValidFrom        time.Time
	ValidUntil       time.Time
	ApplicableMovies []uuid.UUID
}

// AppliesTo reports whether the promotion can be used for a session of the
// given movie at the given time. An empty movie list means the promotion
// applies to every movie.
func (p Promotion) AppliesTo(movieID uuid.UUID, at time.Time) bool {
	if !p.IsActive || at.Before(p.ValidFrom) || at.After(p.ValidUntil) {
		return false
	}

	if len(p.ApplicableMovies) == 0 {
		return true
	}

	for _, id := range p.ApplicableMovies {
		if id == movieID {
			return true
		}
	}

	return false
}

// PromotionValidator resolves a promotion code into a discount percentage.
// Settlement consumes it as a pure lookup before the final amount check.
type PromotionValidator interface {
	// Validate returns the discount percentage for the code, or
	// ErrPromotionNotApplicable when the code is unknown, inactive, outside
	// its validity window, or not applicable to the session's movie.
	Validate(ctx context.Context, code string, movieID uuid.UUID, at time.Time) (decimal.Decimal, error)
}
