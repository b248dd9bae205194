package mocks

import (
	"context"
	"time"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPromotionValidator struct {
	mock.Mock
	domain.PromotionValidator
}

func (m *MockPromotionValidator) Validate(ctx context.Context, code string, movieID uuid.UUID, at time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, code, movieID, at)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
