package mocks

import (
	"context"

	"github.com/cinexplorer/booking-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTicketRepo struct {
	mock.Mock
	domain.TicketRepository
}

func (m *MockTicketRepo) GetById(ctx context.Context, id uuid.UUID) (*domain.TicketSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketSummary), args.Error(1)
}

func (m *MockTicketRepo) ListByUser(ctx context.Context, userID uuid.UUID, status *domain.TicketStatus) ([]domain.TicketSummary, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketSummary), args.Error(1)
}

func (m *MockTicketRepo) Cancel(ctx context.Context, ticketID uuid.UUID) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}
