package testhelpers

import (
	"context"
	"time"

	"rifei/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockNumberLedger is a mock implementation of NumberLedger
type MockNumberLedger struct {
	mock.Mock
}

func (m *MockNumberLedger) GetAvailable(ctx context.Context, raffleID int64) ([]int64, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockNumberLedger) Claim(ctx context.Context, raffle *entities.Raffle, numbers []int64, reservationID uuid.UUID, expiresAt time.Time) error {
	args := m.Called(ctx, raffle, numbers, reservationID, expiresAt)
	return args.Error(0)
}

func (m *MockNumberLedger) MarkSold(ctx context.Context, reservation *entities.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockNumberLedger) Release(ctx context.Context, reservationID uuid.UUID) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockNumberLedger) CountHeldByUser(ctx context.Context, raffleID, userID int64) (int64, error) {
	args := m.Called(ctx, raffleID, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockReservationService is a mock implementation of ReservationService
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Create(ctx context.Context, raffleID, userID int64, numbers []int64) (*entities.Reservation, error) {
	args := m.Called(ctx, raffleID, userID, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationService) GetByID(ctx context.Context, reservationID uuid.UUID, userID int64) (*entities.Reservation, error) {
	args := m.Called(ctx, reservationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationService) Confirm(ctx context.Context, reservationID uuid.UUID) (*entities.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, reservationID uuid.UUID, userID int64) (*entities.Reservation, error) {
	args := m.Called(ctx, reservationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationService) Release(ctx context.Context, reservationID uuid.UUID, reason string) (*entities.Reservation, error) {
	args := m.Called(ctx, reservationID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationService) ExpireStale(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationService) CancelPendingForRaffle(ctx context.Context, raffleID int64, reason string) (int, error) {
	args := m.Called(ctx, raffleID, reason)
	return args.Int(0), args.Error(1)
}
