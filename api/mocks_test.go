package api

import (
	"context"

	"rifei/application"
	"rifei/domain/entities"
	"rifei/domain/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockRaffleService struct {
	mock.Mock
}

func (m *mockRaffleService) CreateRaffle(ctx context.Context, actor application.Actor, params interfaces.CreateRaffleParams) (*entities.Raffle, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *mockRaffleService) GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *mockRaffleService) ListRaffles(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Raffle), args.Get(1).(int64), args.Error(2)
}

func (m *mockRaffleService) ListEndingSoon(ctx context.Context, days, limit int) ([]*entities.Raffle, error) {
	args := m.Called(ctx, days, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Raffle), args.Error(1)
}

func (m *mockRaffleService) UpdateRaffle(ctx context.Context, actor application.Actor, raffleID int64, params interfaces.UpdateRaffleParams) (*entities.Raffle, error) {
	args := m.Called(ctx, actor, raffleID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *mockRaffleService) DeleteRaffle(ctx context.Context, actor application.Actor, raffleID int64) error {
	args := m.Called(ctx, actor, raffleID)
	return args.Error(0)
}

func (m *mockRaffleService) ActivateRaffle(ctx context.Context, actor application.Actor, raffleID int64) (*entities.Raffle, error) {
	args := m.Called(ctx, actor, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *mockRaffleService) CancelRaffle(ctx context.Context, actor application.Actor, raffleID int64) (*entities.Raffle, error) {
	args := m.Called(ctx, actor, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *mockRaffleService) DrawRaffle(ctx context.Context, actor application.Actor, raffleID int64) (*interfaces.RaffleDrawResult, error) {
	args := m.Called(ctx, actor, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.RaffleDrawResult), args.Error(1)
}

func (m *mockRaffleService) VerifyDraw(ctx context.Context, raffleID int64) (*interfaces.DrawVerification, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.DrawVerification), args.Error(1)
}

func (m *mockRaffleService) GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MarketplaceStats), args.Error(1)
}

func (m *mockRaffleService) GetRaffleStats(ctx context.Context, raffleID int64) (*entities.RaffleStats, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RaffleStats), args.Error(1)
}

func (m *mockRaffleService) GetRafflePayments(ctx context.Context, actor application.Actor, raffleID int64, status *entities.PaymentStatus) ([]*entities.Payment, *entities.PaymentStats, error) {
	args := m.Called(ctx, actor, raffleID, status)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]*entities.Payment), args.Get(1).(*entities.PaymentStats), args.Error(2)
}

type mockReservationService struct {
	mock.Mock
}

func (m *mockReservationService) CreateReservation(ctx context.Context, actor application.Actor, raffleID int64, numbers []int64) (*entities.Reservation, error) {
	args := m.Called(ctx, actor, raffleID, numbers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *mockReservationService) GetReservation(ctx context.Context, actor application.Actor, reservationID uuid.UUID) (*entities.Reservation, error) {
	args := m.Called(ctx, actor, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *mockReservationService) ListReservations(ctx context.Context, actor application.Actor) ([]*entities.Reservation, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Reservation), args.Error(1)
}

func (m *mockReservationService) CancelReservation(ctx context.Context, actor application.Actor, reservationID uuid.UUID) (*entities.Reservation, error) {
	args := m.Called(ctx, actor, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *mockReservationService) GetAvailableNumbers(ctx context.Context, raffleID int64) ([]int64, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type mockCheckoutService struct {
	mock.Mock
}

func (m *mockCheckoutService) Checkout(ctx context.Context, actor application.Actor, params application.CheckoutParams) (*entities.Payment, error) {
	args := m.Called(ctx, actor, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) GetPayment(ctx context.Context, actor application.Actor, paymentID int64) (*entities.Payment, error) {
	args := m.Called(ctx, actor, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *mockPaymentService) ListMyPayments(ctx context.Context, actor application.Actor, limit int) ([]*entities.Payment, error) {
	args := m.Called(ctx, actor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Payment), args.Error(1)
}

func (m *mockPaymentService) GetMyPaymentStats(ctx context.Context, actor application.Actor) (*entities.PaymentStats, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentStats), args.Error(1)
}

func (m *mockPaymentService) Refund(ctx context.Context, actor application.Actor, paymentID int64) (*entities.Payment, error) {
	args := m.Called(ctx, actor, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

type mockWebhookService struct {
	mock.Mock
}

func (m *mockWebhookService) HandleDelivery(ctx context.Context, delivery application.WebhookDelivery) (*application.WebhookResult, error) {
	args := m.Called(ctx, delivery)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.WebhookResult), args.Error(1)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
