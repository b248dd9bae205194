package mocks

import (
	"context"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepo struct {
	mock.Mock
	domain.PaymentRepository
}

func (m *MockPaymentRepo) CreateSettlement(ctx context.Context, holdID uuid.UUID, payment *domain.Payment) error {
	args := m.Called(ctx, holdID, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetById(ctx context.Context, id, userID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) GetWithTickets(ctx context.Context, id, userID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) UpdateStatusByPixCode(ctx context.Context, pixCode string, status domain.PaymentStatus) error {
	args := m.Called(ctx, pixCode, status)
	return args.Error(0)
}
