package services

import (
	"context"
	"fmt"

	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/interfaces"
)

const defaultUserPaymentsLimit = 20

type statsService struct {
	raffleRepo  interfaces.RaffleRepository
	paymentRepo interfaces.PaymentRepository
	statsRepo   interfaces.StatsRepository
	clock       clock.Clock
}

// NewStatsService creates a new stats service
func NewStatsService(
	raffleRepo interfaces.RaffleRepository,
	paymentRepo interfaces.PaymentRepository,
	statsRepo interfaces.StatsRepository,
	clk clock.Clock,
) interfaces.StatsService {
	return &statsService{
		raffleRepo:  raffleRepo,
		paymentRepo: paymentRepo,
		statsRepo:   statsRepo,
		clock:       clk,
	}
}

func (s *statsService) GetRaffleStats(ctx context.Context, raffleID int64) (*entities.RaffleStats, error) {
	stats, err := s.statsRepo.GetRaffleStats(ctx, raffleID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle stats: %w", err)
	}
	if stats == nil {
		return nil, domain.ErrRaffleNotFound
	}
	return stats, nil
}

func (s *statsService) GetPaymentStats(ctx context.Context, filter entities.PaymentFilter) (*entities.PaymentStats, error) {
	stats, err := s.statsRepo.GetPaymentStats(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment stats: %w", err)
	}
	return stats, nil
}

func (s *statsService) GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error) {
	stats, err := s.statsRepo.GetMarketplaceStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get marketplace stats: %w", err)
	}
	return stats, nil
}

func (s *statsService) GetUserPayments(ctx context.Context, userID int64, limit int) ([]*entities.Payment, error) {
	if limit <= 0 {
		limit = defaultUserPaymentsLimit
	}

	payments, err := s.paymentRepo.List(ctx, entities.PaymentFilter{UserID: &userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list user payments: %w", err)
	}
	return payments, nil
}

func (s *statsService) GetRafflePayments(ctx context.Context, raffleID int64, status *entities.PaymentStatus) ([]*entities.Payment, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}

	payments, err := s.paymentRepo.List(ctx, entities.PaymentFilter{RaffleID: &raffleID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list raffle payments: %w", err)
	}
	return payments, nil
}
