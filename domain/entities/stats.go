package entities

import "github.com/shopspring/decimal"

// RaffleStats summarizes sales for one raffle
type RaffleStats struct {
	RaffleID         int64           `db:"raffle_id"`
	TotalNumbers     int64           `db:"total_numbers"`
	SoldNumbers      int64           `db:"sold_numbers"`
	ReservedNumbers  int64           `db:"reserved_numbers"`
	AvailableNumbers int64           `db:"available_numbers"`
	UniqueBuyers     int64           `db:"unique_buyers"`
	Revenue          decimal.Decimal `db:"revenue"`
	NetRevenue       decimal.Decimal `db:"net_revenue"`
	ProgressPercent  float64         `db:"progress_percent"`
}

// PaymentStats aggregates payments for a raffle or a user
type PaymentStats struct {
	TotalCount     int64           `db:"total_count"`
	TotalAmount    decimal.Decimal `db:"total_amount"`
	ApprovedCount  int64           `db:"approved_count"`
	ApprovedAmount decimal.Decimal `db:"approved_amount"`
	RefundedCount  int64           `db:"refunded_count"`
}

// PaymentFilter narrows payment stats and listings
type PaymentFilter struct {
	RaffleID *int64
	UserID   *int64
	Status   *PaymentStatus
	Limit    int
}

// MarketplaceStats aggregates every raffle on the platform
type MarketplaceStats struct {
	TotalRaffles     int64           `db:"total_raffles"`
	ActiveRaffles    int64           `db:"active_raffles"`
	CompletedRaffles int64           `db:"completed_raffles"`
	CancelledRaffles int64           `db:"cancelled_raffles"`
	NumbersSold      int64           `db:"numbers_sold"`
	UniqueBuyers     int64           `db:"unique_buyers"`
	EstimatedRevenue decimal.Decimal `db:"estimated_revenue"` // Sum of price * sold_count
}
