package testhelpers

import (
	"context"
	"time"

	"rifei/domain/entities"
	"rifei/domain/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockRaffleRepository is a mock implementation of RaffleRepository
type MockRaffleRepository struct {
	mock.Mock
}

func (m *MockRaffleRepository) Create(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) GetByID(ctx context.Context, id int64) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) Update(ctx context.Context, raffle *entities.Raffle) error {
	args := m.Called(ctx, raffle)
	return args.Error(0)
}

func (m *MockRaffleRepository) AdjustSoldCount(ctx context.Context, id int64, delta int64) (int64, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRaffleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRaffleRepository) List(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*entities.Raffle), args.Get(1).(int64), args.Error(2)
}

func (m *MockRaffleRepository) ListEndingSoon(ctx context.Context, now, until time.Time, limit int) ([]*entities.Raffle, error) {
	args := m.Called(ctx, now, until, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetDueForDraw(ctx context.Context, now time.Time) ([]*entities.Raffle, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Raffle), args.Error(1)
}

func (m *MockRaffleRepository) GetNextEndDate(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// MockNumberClaimRepository is a mock implementation of NumberClaimRepository
type MockNumberClaimRepository struct {
	mock.Mock
}

func (m *MockNumberClaimRepository) Claim(ctx context.Context, raffleID int64, numbers []int64, reservationID uuid.UUID, expiresAt, now time.Time) ([]int64, error) {
	args := m.Called(ctx, raffleID, numbers, reservationID, expiresAt, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockNumberClaimRepository) MarkSold(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, reservationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNumberClaimRepository) Release(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, reservationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNumberClaimRepository) GetAvailable(ctx context.Context, raffleID int64, total int64, now time.Time) ([]int64, error) {
	args := m.Called(ctx, raffleID, total, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockNumberClaimRepository) CountHeldByUser(ctx context.Context, raffleID, userID int64, now time.Time) (int64, error) {
	args := m.Called(ctx, raffleID, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockReservationRepository is a mock implementation of ReservationRepository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, reservation *entities.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Reservation), args.Error(1)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.ReservationStatus, now time.Time) error {
	args := m.Called(ctx, id, status, now)
	return args.Error(0)
}

func (m *MockReservationRepository) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entities.Reservation, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Reservation), args.Error(1)
}

func (m *MockReservationRepository) CancelPendingByRaffle(ctx context.Context, raffleID int64, now time.Time) ([]*entities.Reservation, error) {
	args := m.Called(ctx, raffleID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*entities.Reservation, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Reservation), args.Error(1)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *entities.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id int64) (*entities.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetPendingByReservation(ctx context.Context, reservationID uuid.UUID) (*entities.Payment, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *entities.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ExpirePending(ctx context.Context, now time.Time, limit int) ([]*entities.Payment, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Payment), args.Error(1)
}

func (m *MockPaymentRepository) List(ctx context.Context, filter entities.PaymentFilter) ([]*entities.Payment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Payment), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, tickets []*entities.Ticket) error {
	args := m.Called(ctx, tickets)
	return args.Error(0)
}

func (m *MockTicketRepository) DeleteByPayment(ctx context.Context, paymentID int64) (int64, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) GetByRaffle(ctx context.Context, raffleID int64) ([]*entities.Ticket, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByUser(ctx context.Context, raffleID, userID int64) ([]*entities.Ticket, error) {
	args := m.Called(ctx, raffleID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) MarkWinner(ctx context.Context, ticketID int64) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

func (m *MockTicketRepository) GetParticipantSummary(ctx context.Context, raffleID int64) ([]*entities.RaffleParticipantInfo, error) {
	args := m.Called(ctx, raffleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RaffleParticipantInfo), args.Error(1)
}

// MockStatsRepository is a mock implementation of StatsRepository
type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetRaffleStats(ctx context.Context, raffleID int64, now time.Time) (*entities.RaffleStats, error) {
	args := m.Called(ctx, raffleID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RaffleStats), args.Error(1)
}

func (m *MockStatsRepository) GetPaymentStats(ctx context.Context, filter entities.PaymentFilter) (*entities.PaymentStats, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentStats), args.Error(1)
}

func (m *MockStatsRepository) GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MarketplaceStats), args.Error(1)
}

// MockGatewayEventRepository is a mock implementation of GatewayEventRepository
type MockGatewayEventRepository struct {
	mock.Mock
}

func (m *MockGatewayEventRepository) Record(ctx context.Context, event *entities.GatewayEvent) (*entities.GatewayEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GatewayEvent), args.Error(1)
}

func (m *MockGatewayEventRepository) MarkProcessed(ctx context.Context, id int64, outcome string, processingErr error, now time.Time) error {
	args := m.Called(ctx, id, outcome, processingErr, now)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateCheckout(ctx context.Context, req entities.CheckoutRequest) (*entities.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) GetPayment(ctx context.Context, externalPaymentID string) (*entities.GatewayPayment, error) {
	args := m.Called(ctx, externalPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GatewayPayment), args.Error(1)
}

func (m *MockPaymentGateway) Refund(ctx context.Context, externalPaymentID string) error {
	args := m.Called(ctx, externalPaymentID)
	return args.Error(0)
}
