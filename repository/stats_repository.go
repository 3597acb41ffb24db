package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rifei/domain/entities"

	"github.com/jackc/pgx/v5"
)

// StatsRepository implements aggregate queries over raffles and payments
type StatsRepository struct {
	q Queryable
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(q Queryable) *StatsRepository {
	return &StatsRepository{q: q}
}

// GetRaffleStats summarizes sales for a raffle, nil if the raffle does not exist
func (r *StatsRepository) GetRaffleStats(ctx context.Context, raffleID int64, now time.Time) (*entities.RaffleStats, error) {
	query := `
		SELECT
			r.id,
			r.total_numbers,
			r.sold_count,
			(SELECT COUNT(*) FROM number_claims c
			 WHERE c.raffle_id = r.id AND c.state = 'reserved' AND c.expires_at > $2) AS reserved_numbers,
			(SELECT COUNT(DISTINCT t.user_id) FROM tickets t WHERE t.raffle_id = r.id) AS unique_buyers,
			COALESCE((SELECT SUM(p.amount) FROM payments p
			          WHERE p.raffle_id = r.id AND p.status = 'approved'), 0) AS revenue,
			COALESCE((SELECT SUM(p.net_amount) FROM payments p
			          WHERE p.raffle_id = r.id AND p.status = 'approved'), 0) AS net_revenue
		FROM raffles r
		WHERE r.id = $1
	`

	var stats entities.RaffleStats
	err := r.q.QueryRow(ctx, query, raffleID, now).Scan(
		&stats.RaffleID,
		&stats.TotalNumbers,
		&stats.SoldNumbers,
		&stats.ReservedNumbers,
		&stats.UniqueBuyers,
		&stats.Revenue,
		&stats.NetRevenue,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for raffle %d: %w", raffleID, err)
	}

	stats.AvailableNumbers = stats.TotalNumbers - stats.SoldNumbers - stats.ReservedNumbers
	if stats.TotalNumbers > 0 {
		stats.ProgressPercent = float64(stats.SoldNumbers) / float64(stats.TotalNumbers) * 100
	}

	return &stats, nil
}

// GetPaymentStats aggregates payments for a raffle, a user, or both
func (r *StatsRepository) GetPaymentStats(ctx context.Context, filter entities.PaymentFilter) (*entities.PaymentStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(amount), 0),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COALESCE(SUM(amount) FILTER (WHERE status = 'approved'), 0),
			COUNT(*) FILTER (WHERE status = 'refunded')
		FROM payments
		WHERE ($1::bigint IS NULL OR raffle_id = $1)
		  AND ($2::bigint IS NULL OR user_id = $2)
	`

	var stats entities.PaymentStats
	err := r.q.QueryRow(ctx, query, filter.RaffleID, filter.UserID).Scan(
		&stats.TotalCount,
		&stats.TotalAmount,
		&stats.ApprovedCount,
		&stats.ApprovedAmount,
		&stats.RefundedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment stats: %w", err)
	}

	return &stats, nil
}

// GetMarketplaceStats aggregates every raffle. Revenue is estimated from sold counts.
func (r *StatsRepository) GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COALESCE(SUM(sold_count), 0),
			(SELECT COUNT(DISTINCT user_id) FROM tickets),
			COALESCE(SUM(price * sold_count), 0)
		FROM raffles
	`

	var stats entities.MarketplaceStats
	err := r.q.QueryRow(ctx, query).Scan(
		&stats.TotalRaffles,
		&stats.ActiveRaffles,
		&stats.CompletedRaffles,
		&stats.CancelledRaffles,
		&stats.NumbersSold,
		&stats.UniqueBuyers,
		&stats.EstimatedRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get marketplace stats: %w", err)
	}

	return &stats, nil
}
