package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/events"
	"rifei/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type reservationMocks struct {
	raffleRepo      *testhelpers.MockRaffleRepository
	reservationRepo *testhelpers.MockReservationRepository
	ledger          *testhelpers.MockNumberLedger
	eventPublisher  *testhelpers.MockEventPublisher
}

func setupReservationService(cfg *config.Config) (*reservationService, *reservationMocks) {
	m := &reservationMocks{
		raffleRepo:      new(testhelpers.MockRaffleRepository),
		reservationRepo: new(testhelpers.MockReservationRepository),
		ledger:          new(testhelpers.MockNumberLedger),
		eventPublisher:  new(testhelpers.MockEventPublisher),
	}
	if cfg == nil {
		cfg = config.NewTestConfig()
	}
	svc := NewReservationService(m.raffleRepo, m.reservationRepo, m.ledger, m.eventPublisher, clock.NewFixed(testNow), cfg)
	return svc.(*reservationService), m
}

func TestReservationService_Create_Validation(t *testing.T) {
	t.Parallel()

	limited := int64(5)

	tests := []struct {
		name       string
		numbers    []int64
		raffle     *entities.Raffle
		heldByUser int64
		wantErrIs  error
	}{
		{
			name:      "no numbers",
			numbers:   nil,
			wantErrIs: domain.ErrNoNumbers,
		},
		{
			name:      "duplicate numbers",
			numbers:   []int64{4, 9, 4},
			wantErrIs: domain.ErrDuplicateNumbers,
		},
		{
			name:      "raffle not found",
			numbers:   []int64{1},
			wantErrIs: domain.ErrRaffleNotFound,
		},
		{
			name:      "draft raffle",
			numbers:   []int64{1},
			raffle:    createTestRaffle(1, func(r *entities.Raffle) { r.Status = entities.RaffleStatusDraft }),
			wantErrIs: domain.ErrRaffleNotActive,
		},
		{
			name:      "raffle past end date",
			numbers:   []int64{1},
			raffle:    createTestRaffle(1, func(r *entities.Raffle) { r.EndDate = testNow }),
			wantErrIs: domain.ErrRaffleNotActive,
		},
		{
			name:      "number above total",
			numbers:   []int64{1, 101},
			raffle:    createTestRaffle(1),
			wantErrIs: domain.ErrNumberOutOfRange,
		},
		{
			name:      "number zero",
			numbers:   []int64{0},
			raffle:    createTestRaffle(1),
			wantErrIs: domain.ErrNumberOutOfRange,
		},
		{
			name:       "per user limit counts numbers already held",
			numbers:    []int64{1, 2},
			raffle:     createTestRaffle(1, func(r *entities.Raffle) { r.MaxNumbersPerUser = &limited }),
			heldByUser: 4,
			wantErrIs:  domain.ErrTooManyNumbers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupReservationService(nil)
			if tt.raffle != nil {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(tt.raffle, nil)
			} else {
				m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(nil, nil).Maybe()
			}
			m.ledger.On("CountHeldByUser", mock.Anything, int64(1), int64(42)).Return(tt.heldByUser, nil).Maybe()

			reservation, err := svc.Create(context.Background(), 1, 42, tt.numbers)

			assert.ErrorIs(t, err, tt.wantErrIs)
			assert.Nil(t, reservation)
			m.reservationRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			m.ledger.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestReservationService_Create_TooManyForOneReservation(t *testing.T) {
	t.Parallel()

	cfg := config.NewTestConfig()
	cfg.ReservationMaxNumbers = 3
	svc, _ := setupReservationService(cfg)

	_, err := svc.Create(context.Background(), 1, 42, []int64{1, 2, 3, 4})

	assert.ErrorIs(t, err, domain.ErrTooManyNumbers)
}

func TestReservationService_Create_Success(t *testing.T) {
	t.Parallel()

	svc, m := setupReservationService(nil)
	raffle := createTestRaffle(1, func(r *entities.Raffle) { r.Price = decimal.RequireFromString("2.50") })

	m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(raffle, nil)
	m.reservationRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Reservation")).Return(nil)
	m.ledger.On("Claim", mock.Anything, raffle, []int64{3, 1, 2}, mock.Anything, testNow.Add(15*time.Minute)).Return(nil)
	m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.ReservationCreatedEvent) bool {
		return e.RaffleID == 1 && e.UserID == 42
	})).Return(nil)

	reservation, err := svc.Create(context.Background(), 1, 42, []int64{3, 1, 2})

	require.NoError(t, err)
	assert.Equal(t, entities.ReservationStatusPending, reservation.Status)
	assert.Equal(t, []int64{3, 1, 2}, reservation.Numbers)
	assert.True(t, decimal.RequireFromString("7.50").Equal(reservation.TotalAmount))
	assert.Equal(t, testNow.Add(15*time.Minute), reservation.ExpiresAt)
	m.raffleRepo.AssertExpectations(t)
	m.reservationRepo.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

func TestReservationService_Create_NumbersTaken(t *testing.T) {
	t.Parallel()

	svc, m := setupReservationService(nil)
	raffle := createTestRaffle(1)

	m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(raffle, nil)
	m.reservationRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.ledger.On("Claim", mock.Anything, raffle, []int64{5, 6}, mock.Anything, mock.Anything).
		Return(&domain.NumbersUnavailableError{Numbers: []int64{6}})

	reservation, err := svc.Create(context.Background(), 1, 42, []int64{5, 6})

	assert.Nil(t, reservation)
	assert.ErrorIs(t, err, domain.ErrNumbersUnavailable)
	assert.Equal(t, []int64{6}, domain.UnavailableNumbers(err))
	m.eventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestReservationService_Confirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		reservation *entities.Reservation
		setupMocks  func(*reservationMocks, *entities.Reservation)
		wantStatus  entities.ReservationStatus
		wantErrIs   error
	}{
		{
			name:        "pending reservation is confirmed",
			reservation: createTestReservation(1, 42, []int64{1, 2}),
			setupMocks: func(m *reservationMocks, r *entities.Reservation) {
				m.ledger.On("MarkSold", mock.Anything, r).Return(nil)
				m.reservationRepo.On("UpdateStatus", mock.Anything, r.ID, entities.ReservationStatusConfirmed, testNow).Return(nil)
			},
			wantStatus: entities.ReservationStatusConfirmed,
		},
		{
			name: "already confirmed is idempotent",
			reservation: createTestReservation(1, 42, []int64{1}, func(r *entities.Reservation) {
				r.Status = entities.ReservationStatusConfirmed
			}),
			setupMocks: func(m *reservationMocks, r *entities.Reservation) {},
			wantStatus: entities.ReservationStatusConfirmed,
		},
		{
			name: "cancelled reservation",
			reservation: createTestReservation(1, 42, []int64{1}, func(r *entities.Reservation) {
				r.Status = entities.ReservationStatusCancelled
			}),
			setupMocks: func(m *reservationMocks, r *entities.Reservation) {},
			wantStatus: entities.ReservationStatusCancelled,
			wantErrIs:  domain.ErrReservationCancelled,
		},
		{
			name: "pending past expiry is expired and released",
			reservation: createTestReservation(1, 42, []int64{1}, func(r *entities.Reservation) {
				r.ExpiresAt = testNow.Add(-time.Second)
			}),
			setupMocks: func(m *reservationMocks, r *entities.Reservation) {
				m.reservationRepo.On("UpdateStatus", mock.Anything, r.ID, entities.ReservationStatusExpired, testNow).Return(nil)
				m.ledger.On("Release", mock.Anything, r.ID).Return(nil)
				m.eventPublisher.On("Publish", events.ReservationReleasedEvent{
					ReservationID: r.ID, RaffleID: 1, UserID: 42, Numbers: []int64{1}, Expired: true, Reason: "ttl",
				}).Return(nil)
			},
			wantStatus: entities.ReservationStatusExpired,
			wantErrIs:  domain.ErrAlreadyExpired,
		},
		{
			name:        "claims lost to another buyer",
			reservation: createTestReservation(1, 42, []int64{1, 2}),
			setupMocks: func(m *reservationMocks, r *entities.Reservation) {
				m.ledger.On("MarkSold", mock.Anything, r).Return(domain.ErrAlreadyExpired)
				m.reservationRepo.On("UpdateStatus", mock.Anything, r.ID, entities.ReservationStatusExpired, testNow).Return(nil)
				m.ledger.On("Release", mock.Anything, r.ID).Return(nil)
				m.eventPublisher.On("Publish", mock.Anything).Return(nil)
			},
			wantStatus: entities.ReservationStatusExpired,
			wantErrIs:  domain.ErrAlreadyExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupReservationService(nil)
			m.reservationRepo.On("GetByIDForUpdate", mock.Anything, tt.reservation.ID).Return(tt.reservation, nil)
			tt.setupMocks(m, tt.reservation)

			reservation, err := svc.Confirm(context.Background(), tt.reservation.ID)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, reservation)
			assert.Equal(t, tt.wantStatus, reservation.Status)
			m.reservationRepo.AssertExpectations(t)
			m.ledger.AssertExpectations(t)
			m.eventPublisher.AssertExpectations(t)
		})
	}
}

func TestReservationService_Cancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		userID       int64
		reservation  *entities.Reservation
		expectWrite  bool
		expectExpire bool
		wantErrIs    error
	}{
		{
			name:        "owner cancels pending reservation",
			userID:      42,
			reservation: createTestReservation(1, 42, []int64{8}),
			expectWrite: true,
		},
		{
			name:        "another user",
			userID:      7,
			reservation: createTestReservation(1, 42, []int64{8}),
			wantErrIs:   domain.ErrReservationNotOwned,
		},
		{
			name:   "confirmed reservation",
			userID: 42,
			reservation: createTestReservation(1, 42, []int64{8}, func(r *entities.Reservation) {
				r.Status = entities.ReservationStatusConfirmed
			}),
			wantErrIs: domain.ErrAlreadyConfirmed,
		},
		{
			name:   "expired reservation",
			userID: 42,
			reservation: createTestReservation(1, 42, []int64{8}, func(r *entities.Reservation) {
				r.Status = entities.ReservationStatusExpired
			}),
			wantErrIs: domain.ErrAlreadyExpired,
		},
		{
			name:   "lapsed reservation is expired",
			userID: 42,
			reservation: createTestReservation(1, 42, []int64{8}, func(r *entities.Reservation) {
				r.ExpiresAt = testNow.Add(-time.Second)
			}),
			expectExpire: true,
			wantErrIs:    domain.ErrAlreadyExpired,
		},
		{
			name:   "already cancelled is idempotent",
			userID: 42,
			reservation: createTestReservation(1, 42, []int64{8}, func(r *entities.Reservation) {
				r.Status = entities.ReservationStatusCancelled
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupReservationService(nil)
			m.reservationRepo.On("GetByIDForUpdate", mock.Anything, tt.reservation.ID).Return(tt.reservation, nil)
			if tt.expectWrite {
				m.reservationRepo.On("UpdateStatus", mock.Anything, tt.reservation.ID, entities.ReservationStatusCancelled, testNow).Return(nil)
				m.ledger.On("Release", mock.Anything, tt.reservation.ID).Return(nil)
				m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.ReservationReleasedEvent) bool {
					return !e.Expired && e.Reason == "user_cancelled"
				})).Return(nil)
			}
			if tt.expectExpire {
				m.reservationRepo.On("UpdateStatus", mock.Anything, tt.reservation.ID, entities.ReservationStatusExpired, testNow).Return(nil)
				m.ledger.On("Release", mock.Anything, tt.reservation.ID).Return(nil)
				m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.ReservationReleasedEvent) bool {
					return e.Expired && e.Reason == "ttl"
				})).Return(nil)
			}

			reservation, err := svc.Cancel(context.Background(), tt.reservation.ID, tt.userID)

			switch {
			case errors.Is(tt.wantErrIs, domain.ErrAlreadyExpired):
				assert.ErrorIs(t, err, tt.wantErrIs)
				require.NotNil(t, reservation)
				assert.Equal(t, entities.ReservationStatusExpired, reservation.Status)
			case tt.wantErrIs != nil:
				assert.ErrorIs(t, err, tt.wantErrIs)
				assert.Nil(t, reservation)
			default:
				require.NoError(t, err)
				assert.Equal(t, entities.ReservationStatusCancelled, reservation.Status)
			}
			m.reservationRepo.AssertExpectations(t)
			m.ledger.AssertExpectations(t)
			if !tt.expectWrite && !tt.expectExpire {
				m.ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestReservationService_ExpireStale(t *testing.T) {
	t.Parallel()

	svc, m := setupReservationService(nil)
	first := createTestReservation(1, 42, []int64{1}, func(r *entities.Reservation) { r.Status = entities.ReservationStatusExpired })
	second := createTestReservation(1, 43, []int64{2, 3}, func(r *entities.Reservation) { r.Status = entities.ReservationStatusExpired })

	m.reservationRepo.On("ExpireStale", mock.Anything, testNow, 50).Return([]*entities.Reservation{first, second}, nil)
	m.ledger.On("Release", mock.Anything, first.ID).Return(nil)
	m.ledger.On("Release", mock.Anything, second.ID).Return(nil)
	m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.ReservationReleasedEvent) bool {
		return e.Type() == events.EventTypeReservationExpired
	})).Return(nil).Twice()

	count, err := svc.ExpireStale(context.Background(), 50)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	m.ledger.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

func TestReservationService_ExpireStale_ReleaseFailure(t *testing.T) {
	t.Parallel()

	svc, m := setupReservationService(nil)
	expired := createTestReservation(1, 42, []int64{1})

	m.reservationRepo.On("ExpireStale", mock.Anything, testNow, 10).Return([]*entities.Reservation{expired}, nil)
	m.ledger.On("Release", mock.Anything, expired.ID).Return(errors.New("connection reset"))

	_, err := svc.ExpireStale(context.Background(), 10)

	assert.Error(t, err)
	m.eventPublisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestReservationService_Release_IgnoresSettledReservation(t *testing.T) {
	t.Parallel()

	svc, m := setupReservationService(nil)
	confirmed := createTestReservation(1, 42, []int64{1}, func(r *entities.Reservation) {
		r.Status = entities.ReservationStatusConfirmed
	})
	m.reservationRepo.On("GetByIDForUpdate", mock.Anything, confirmed.ID).Return(confirmed, nil)

	reservation, err := svc.Release(context.Background(), confirmed.ID, "payment_rejected")

	require.NoError(t, err)
	assert.Equal(t, entities.ReservationStatusConfirmed, reservation.Status)
	m.reservationRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
