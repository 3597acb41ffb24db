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
	"rifei/domain/interfaces"
	"rifei/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type raffleMocks struct {
	raffleRepo     *testhelpers.MockRaffleRepository
	ticketRepo     *testhelpers.MockTicketRepository
	reservations   *testhelpers.MockReservationService
	eventPublisher *testhelpers.MockEventPublisher
}

func setupRaffleService(cfg *config.Config, seed []byte) (*raffleService, *raffleMocks) {
	m := &raffleMocks{
		raffleRepo:     new(testhelpers.MockRaffleRepository),
		ticketRepo:     new(testhelpers.MockTicketRepository),
		reservations:   new(testhelpers.MockReservationService),
		eventPublisher: new(testhelpers.MockEventPublisher),
	}
	if cfg == nil {
		cfg = config.NewTestConfig()
	}
	seedFn := func() ([]byte, error) { return seed, nil }
	return newRaffleService(m.raffleRepo, m.ticketRepo, m.reservations, m.eventPublisher, clock.NewFixed(testNow), cfg, seedFn), m
}

func TestRaffleService_Create(t *testing.T) {
	t.Parallel()

	zero := int64(0)

	tests := []struct {
		name      string
		params    interfaces.CreateRaffleParams
		wantErrIs error
	}{
		{
			name: "valid draft",
			params: interfaces.CreateRaffleParams{
				CreatorID: 1, Title: "  Bike  ", Price: decimal.RequireFromString("5"),
				TotalNumbers: 50, EndDate: testNow.Add(48 * time.Hour),
			},
		},
		{
			name: "blank title",
			params: interfaces.CreateRaffleParams{
				CreatorID: 1, Title: " ", Price: decimal.RequireFromString("5"),
				TotalNumbers: 50, EndDate: testNow.Add(time.Hour),
			},
			wantErrIs: domain.ErrInvalidRaffle,
		},
		{
			name: "free numbers",
			params: interfaces.CreateRaffleParams{
				CreatorID: 1, Title: "Bike", Price: decimal.Zero,
				TotalNumbers: 50, EndDate: testNow.Add(time.Hour),
			},
			wantErrIs: domain.ErrInvalidRaffle,
		},
		{
			name: "zero per user limit",
			params: interfaces.CreateRaffleParams{
				CreatorID: 1, Title: "Bike", Price: decimal.RequireFromString("5"),
				TotalNumbers: 50, MaxNumbersPerUser: &zero, EndDate: testNow.Add(time.Hour),
			},
			wantErrIs: domain.ErrInvalidRaffle,
		},
		{
			name: "end date in the past",
			params: interfaces.CreateRaffleParams{
				CreatorID: 1, Title: "Bike", Price: decimal.RequireFromString("5"),
				TotalNumbers: 50, EndDate: testNow.Add(-time.Minute),
			},
			wantErrIs: domain.ErrEndDateInPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, nil)
			m.raffleRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Raffle")).Return(nil).Maybe()

			raffle, err := svc.Create(context.Background(), tt.params)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				assert.Nil(t, raffle)
				m.raffleRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.RaffleStatusDraft, raffle.Status)
			assert.Equal(t, "Bike", raffle.Title)
		})
	}
}

func TestRaffleService_Activate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raffle    *entities.Raffle
		wantErrIs error
	}{
		{
			name:   "draft raffle opens",
			raffle: createTestRaffle(1, func(r *entities.Raffle) { r.Status = entities.RaffleStatusDraft; r.StartDate = nil }),
		},
		{
			name:      "already active",
			raffle:    createTestRaffle(1),
			wantErrIs: domain.ErrInvalidTransition,
		},
		{
			name: "end date passed while in draft",
			raffle: createTestRaffle(1, func(r *entities.Raffle) {
				r.Status = entities.RaffleStatusDraft
				r.EndDate = testNow.Add(-time.Hour)
			}),
			wantErrIs: domain.ErrEndDateInPast,
		},
		{
			name: "too few numbers",
			raffle: createTestRaffle(1, func(r *entities.Raffle) {
				r.Status = entities.RaffleStatusDraft
				r.TotalNumbers = 9
			}),
			wantErrIs: domain.ErrTooFewNumbers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, nil)
			m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(tt.raffle, nil)
			m.raffleRepo.On("Update", mock.Anything, tt.raffle).Return(nil).Maybe()
			m.eventPublisher.On("Publish", mock.AnythingOfType("events.RaffleActivatedEvent")).Return(nil).Maybe()

			raffle, err := svc.Activate(context.Background(), 1)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.RaffleStatusActive, raffle.Status)
			require.NotNil(t, raffle.StartDate)
			assert.Equal(t, testNow, *raffle.StartDate)
			m.eventPublisher.AssertExpectations(t)
		})
	}
}

func TestRaffleService_Draw(t *testing.T) {
	t.Parallel()

	// 0x0100 = 256; 256 mod 3 = 1 selects the second ticket
	seed := []byte{0x01, 0x00}

	svc, m := setupRaffleService(nil, seed)
	raffle := createTestRaffle(1, func(r *entities.Raffle) {
		r.SoldCount = 3
		r.EndDate = testNow.Add(-time.Minute)
	})
	tickets := []*entities.Ticket{
		{ID: 100, RaffleID: 1, Number: 7, UserID: 42},
		{ID: 101, RaffleID: 1, Number: 15, UserID: 43},
		{ID: 102, RaffleID: 1, Number: 60, UserID: 42},
	}

	m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(raffle, nil)
	m.ticketRepo.On("GetByRaffle", mock.Anything, int64(1)).Return(tickets, nil)
	m.ticketRepo.On("MarkWinner", mock.Anything, int64(101)).Return(nil)
	m.raffleRepo.On("Update", mock.Anything, raffle).Return(nil)
	m.reservations.On("CancelPendingForRaffle", mock.Anything, int64(1), "raffle_completed").Return(2, nil)
	m.eventPublisher.On("Publish", mock.MatchedBy(func(e events.RaffleCompletedEvent) bool {
		return e.WinnerNumber == 15 && e.WinnerID == 43
	})).Return(nil)

	result, err := svc.Draw(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, int64(15), result.WinnerTicket.Number)
	assert.True(t, result.WinnerTicket.IsWinner)
	assert.Equal(t, 3, result.TicketCount)
	assert.Equal(t, entities.RaffleStatusCompleted, raffle.Status)
	require.NotNil(t, raffle.WinnerNumber)
	assert.Equal(t, int64(15), *raffle.WinnerNumber)
	require.NotNil(t, raffle.DrawProof)
	assert.True(t, entities.VerifyDrawProof(1, []int64{7, 15, 60}, 15, *raffle.DrawProof))
	m.ticketRepo.AssertExpectations(t)
	m.reservations.AssertExpectations(t)
	m.eventPublisher.AssertExpectations(t)
}

func TestRaffleService_Draw_Preconditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raffle    *entities.Raffle
		wantErrIs error
	}{
		{
			name:      "nothing sold",
			raffle:    createTestRaffle(1, func(r *entities.Raffle) { r.EndDate = testNow.Add(-time.Minute) }),
			wantErrIs: domain.ErrNoTicketsSold,
		},
		{
			name:      "still selling",
			raffle:    createTestRaffle(1, func(r *entities.Raffle) { r.SoldCount = 10 }),
			wantErrIs: domain.ErrDrawNotDue,
		},
		{
			name: "already completed",
			raffle: createTestRaffle(1, func(r *entities.Raffle) {
				r.Status = entities.RaffleStatusCompleted
				r.SoldCount = 10
			}),
			wantErrIs: domain.ErrRaffleNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, []byte{1})
			m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(tt.raffle, nil)

			result, err := svc.Draw(context.Background(), 1)

			assert.ErrorIs(t, err, tt.wantErrIs)
			assert.Nil(t, result)
			m.ticketRepo.AssertNotCalled(t, "MarkWinner", mock.Anything, mock.Anything)
		})
	}
}

func TestRaffleService_Draw_SoldOutBeforeEndDate(t *testing.T) {
	t.Parallel()

	svc, m := setupRaffleService(nil, []byte{0})
	raffle := createTestRaffle(1, func(r *entities.Raffle) {
		r.TotalNumbers = 10
		r.SoldCount = 10
	})
	tickets := make([]*entities.Ticket, 10)
	for i := range tickets {
		tickets[i] = &entities.Ticket{ID: int64(200 + i), RaffleID: 1, Number: int64(i + 1), UserID: 42}
	}

	m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(raffle, nil)
	m.ticketRepo.On("GetByRaffle", mock.Anything, int64(1)).Return(tickets, nil)
	m.ticketRepo.On("MarkWinner", mock.Anything, int64(200)).Return(nil)
	m.raffleRepo.On("Update", mock.Anything, raffle).Return(nil)
	m.reservations.On("CancelPendingForRaffle", mock.Anything, int64(1), "raffle_completed").Return(0, nil)
	m.eventPublisher.On("Publish", mock.Anything).Return(nil)

	result, err := svc.Draw(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, int64(1), result.WinnerTicket.Number)
}

func TestRaffleService_Draw_SeedFailure(t *testing.T) {
	t.Parallel()

	svc, m := setupRaffleService(nil, nil)
	svc.seedFn = func() ([]byte, error) { return nil, errors.New("entropy unavailable") }
	raffle := createTestRaffle(1, func(r *entities.Raffle) {
		r.SoldCount = 1
		r.EndDate = testNow.Add(-time.Minute)
	})

	m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(raffle, nil)
	m.ticketRepo.On("GetByRaffle", mock.Anything, int64(1)).Return([]*entities.Ticket{{ID: 1, Number: 3}}, nil)

	_, err := svc.Draw(context.Background(), 1)

	assert.Error(t, err)
	assert.Equal(t, entities.RaffleStatusActive, raffle.Status)
	m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestRaffleService_Cancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		maxSold   int
		raffle    *entities.Raffle
		wantErrIs error
	}{
		{
			name:   "active raffle without sales",
			raffle: createTestRaffle(1),
		},
		{
			name:   "draft raffle",
			raffle: createTestRaffle(1, func(r *entities.Raffle) { r.Status = entities.RaffleStatusDraft }),
		},
		{
			name:      "sales block cancellation by default",
			raffle:    createTestRaffle(1, func(r *entities.Raffle) { r.SoldCount = 1 }),
			wantErrIs: domain.ErrCancelNotAllowed,
		},
		{
			name:    "policy allows a few sales",
			maxSold: 5,
			raffle:  createTestRaffle(1, func(r *entities.Raffle) { r.SoldCount = 5 }),
		},
		{
			name:      "completed raffle",
			raffle:    createTestRaffle(1, func(r *entities.Raffle) { r.Status = entities.RaffleStatusCompleted }),
			wantErrIs: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewTestConfig()
			cfg.RaffleCancelMaxSold = tt.maxSold
			svc, m := setupRaffleService(cfg, nil)
			m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(tt.raffle, nil)
			m.raffleRepo.On("Update", mock.Anything, tt.raffle).Return(nil).Maybe()
			m.reservations.On("CancelPendingForRaffle", mock.Anything, int64(1), "raffle_cancelled").Return(1, nil).Maybe()
			m.eventPublisher.On("Publish", mock.AnythingOfType("events.RaffleCancelledEvent")).Return(nil).Maybe()

			raffle, err := svc.Cancel(context.Background(), 1)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				m.reservations.AssertNotCalled(t, "CancelPendingForRaffle", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entities.RaffleStatusCancelled, raffle.Status)
			m.reservations.AssertCalled(t, "CancelPendingForRaffle", mock.Anything, int64(1), "raffle_cancelled")
		})
	}
}

func TestRaffleService_List(t *testing.T) {
	t.Parallel()

	cheap := decimal.RequireFromString("5")
	pricey := decimal.RequireFromString("50")

	tests := []struct {
		name       string
		filter     entities.RaffleFilter
		wantFilter entities.RaffleFilter
		wantErrIs  error
	}{
		{
			name:       "defaults",
			filter:     entities.RaffleFilter{},
			wantFilter: entities.RaffleFilter{SortBy: entities.RaffleSortCreatedAt, Limit: 20},
		},
		{
			name:       "limit capped and offset floored",
			filter:     entities.RaffleFilter{SortBy: entities.RaffleSortPrice, Limit: 500, Offset: -3},
			wantFilter: entities.RaffleFilter{SortBy: entities.RaffleSortPrice, Limit: 100},
		},
		{
			name:      "unknown sort column",
			filter:    entities.RaffleFilter{SortBy: "title"},
			wantErrIs: domain.ErrInvalidFilter,
		},
		{
			name:      "inverted price range",
			filter:    entities.RaffleFilter{MinPrice: &pricey, MaxPrice: &cheap},
			wantErrIs: domain.ErrInvalidFilter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, nil)
			m.raffleRepo.On("List", mock.Anything, tt.wantFilter).Return([]*entities.Raffle{createTestRaffle(1)}, int64(1), nil).Maybe()

			raffles, total, err := svc.List(context.Background(), tt.filter)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				m.raffleRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Len(t, raffles, 1)
			assert.Equal(t, int64(1), total)
			m.raffleRepo.AssertExpectations(t)
		})
	}
}

func TestRaffleService_ListEndingSoon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		days      int
		limit     int
		wantUntil time.Time
		wantLimit int
	}{
		{name: "defaults", wantUntil: testNow.AddDate(0, 0, 3), wantLimit: 6},
		{name: "explicit window", days: 7, limit: 10, wantUntil: testNow.AddDate(0, 0, 7), wantLimit: 10},
		{name: "capped", days: 90, limit: 90, wantUntil: testNow.AddDate(0, 0, 30), wantLimit: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, nil)
			m.raffleRepo.On("ListEndingSoon", mock.Anything, testNow, tt.wantUntil, tt.wantLimit).Return([]*entities.Raffle{}, nil)

			_, err := svc.ListEndingSoon(context.Background(), tt.days, tt.limit)

			require.NoError(t, err)
			m.raffleRepo.AssertExpectations(t)
		})
	}
}

func TestRaffleService_Update(t *testing.T) {
	t.Parallel()

	draft := func(r *entities.Raffle) { r.Status = entities.RaffleStatusDraft }
	title := "  Mountain bike  "
	price := decimal.RequireFromString("7.499")
	total := int64(200)
	tooMany := int64(500)
	past := testNow.Add(-time.Hour)

	tests := []struct {
		name      string
		raffle    *entities.Raffle
		params    interfaces.UpdateRaffleParams
		wantErrIs error
		check     func(t *testing.T, raffle *entities.Raffle)
	}{
		{
			name:   "draft terms change",
			raffle: createTestRaffle(1, draft),
			params: interfaces.UpdateRaffleParams{Title: &title, Price: &price, TotalNumbers: &total},
			check: func(t *testing.T, raffle *entities.Raffle) {
				assert.Equal(t, "Mountain bike", raffle.Title)
				assert.Equal(t, "7.5", raffle.Price.String())
				assert.Equal(t, int64(200), raffle.TotalNumbers)
			},
		},
		{
			name:      "active raffle is fixed",
			raffle:    createTestRaffle(1),
			params:    interfaces.UpdateRaffleParams{Title: &title},
			wantErrIs: domain.ErrRaffleNotEditable,
		},
		{
			name:      "per user limit above total",
			raffle:    createTestRaffle(1, draft),
			params:    interfaces.UpdateRaffleParams{MaxNumbersPerUser: &tooMany},
			wantErrIs: domain.ErrInvalidRaffle,
		},
		{
			name:      "end date moved into the past",
			raffle:    createTestRaffle(1, draft),
			params:    interfaces.UpdateRaffleParams{EndDate: &past},
			wantErrIs: domain.ErrEndDateInPast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, nil)
			m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(tt.raffle, nil)
			m.raffleRepo.On("Update", mock.Anything, tt.raffle).Return(nil).Maybe()

			raffle, err := svc.Update(context.Background(), 1, tt.params)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				m.raffleRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			tt.check(t, raffle)
			m.raffleRepo.AssertCalled(t, "Update", mock.Anything, tt.raffle)
		})
	}
}

func TestRaffleService_Delete(t *testing.T) {
	t.Parallel()

	draft := func(r *entities.Raffle) { r.Status = entities.RaffleStatusDraft }

	tests := []struct {
		name      string
		raffle    *entities.Raffle
		deleted   bool
		wantErrIs error
	}{
		{
			name:    "unsold draft",
			raffle:  createTestRaffle(1, draft),
			deleted: true,
		},
		{
			name:      "active raffle",
			raffle:    createTestRaffle(1),
			wantErrIs: domain.ErrDeleteNotAllowed,
		},
		{
			name:      "cancelled raffle keeps its history",
			raffle:    createTestRaffle(1, func(r *entities.Raffle) { r.Status = entities.RaffleStatusCancelled }),
			wantErrIs: domain.ErrDeleteNotAllowed,
		},
		{
			name:      "row no longer matches",
			raffle:    createTestRaffle(1, draft),
			deleted:   false,
			wantErrIs: domain.ErrDeleteNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, nil)
			m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(1)).Return(tt.raffle, nil)
			m.raffleRepo.On("Delete", mock.Anything, int64(1)).Return(tt.deleted, nil).Maybe()

			err := svc.Delete(context.Background(), 1)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				return
			}
			require.NoError(t, err)
			m.raffleRepo.AssertCalled(t, "Delete", mock.Anything, int64(1))
		})
	}
}

func TestRaffleService_Delete_NotFound(t *testing.T) {
	t.Parallel()

	svc, m := setupRaffleService(nil, nil)
	m.raffleRepo.On("GetByIDForUpdate", mock.Anything, int64(9)).Return(nil, nil)

	err := svc.Delete(context.Background(), 9)

	assert.True(t, errors.Is(err, domain.ErrRaffleNotFound))
	m.raffleRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRaffleService_VerifyDraw(t *testing.T) {
	t.Parallel()

	sold := []int64{7, 15, 60}
	drawn, err := entities.SelectWinner(1, sold, []byte{0x01, 0x00})
	require.NoError(t, err)
	winner := sold[drawn.WinnerIndex]

	completed := func(r *entities.Raffle) {
		r.Complete(winner, 43, drawn.Proof, testNow)
	}
	ticketsFor := func(numbers ...int64) []*entities.Ticket {
		tickets := make([]*entities.Ticket, len(numbers))
		for i, n := range numbers {
			tickets[i] = &entities.Ticket{ID: int64(i + 1), RaffleID: 1, Number: n}
		}
		return tickets
	}

	tests := []struct {
		name         string
		raffle       *entities.Raffle
		tickets      []*entities.Ticket
		wantVerified bool
		wantErrIs    error
	}{
		{
			name:         "proof replays",
			raffle:       createTestRaffle(1, completed),
			tickets:      ticketsFor(7, 15, 60),
			wantVerified: true,
		},
		{
			name:    "sold numbers differ from the drawn set",
			raffle:  createTestRaffle(1, completed),
			tickets: ticketsFor(7, 15, 60, 61),
		},
		{
			name:      "not drawn yet",
			raffle:    createTestRaffle(1),
			wantErrIs: domain.ErrNotDrawn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, m := setupRaffleService(nil, nil)
			m.raffleRepo.On("GetByID", mock.Anything, int64(1)).Return(tt.raffle, nil)
			m.ticketRepo.On("GetByRaffle", mock.Anything, int64(1)).Return(tt.tickets, nil).Maybe()

			verification, err := svc.VerifyDraw(context.Background(), 1)

			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
				m.ticketRepo.AssertNotCalled(t, "GetByRaffle", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerified, verification.Verified)
			assert.Equal(t, len(tt.tickets), verification.TicketCount)
		})
	}
}
