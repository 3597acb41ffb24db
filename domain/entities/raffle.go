package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaffleStatus represents the lifecycle state of a raffle
type RaffleStatus string

const (
	RaffleStatusDraft     RaffleStatus = "draft"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusCompleted RaffleStatus = "completed"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

// Raffle is a numbered raffle. Numbers run from 1 to TotalNumbers.
type Raffle struct {
	ID                int64           `db:"id"`
	CreatorID         int64           `db:"creator_id"`
	Title             string          `db:"title"`
	Description       string          `db:"description"`
	Price             decimal.Decimal `db:"price"`         // Price per number in BRL
	TotalNumbers      int64           `db:"total_numbers"` // Immutable once active
	MaxNumbersPerUser *int64          `db:"max_numbers_per_user"`
	Status            RaffleStatus    `db:"status"`
	StartDate         *time.Time      `db:"start_date"` // Set on activation
	EndDate           time.Time       `db:"end_date"`
	DrawDate          *time.Time      `db:"draw_date"`     // NULL until drawn
	WinnerNumber      *int64          `db:"winner_number"` // NULL until drawn
	WinnerID          *int64          `db:"winner_id"`
	DrawProof         *string         `db:"draw_proof"`
	SoldCount         int64           `db:"sold_count"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// IsActive returns true if the raffle accepts reservations by status
func (r *Raffle) IsActive() bool {
	return r.Status == RaffleStatusActive
}

// IsFinal returns true once the raffle is completed or cancelled
func (r *Raffle) IsFinal() bool {
	return r.Status == RaffleStatusCompleted || r.Status == RaffleStatusCancelled
}

// CanReserve returns true if numbers can still be reserved at now
func (r *Raffle) CanReserve(now time.Time) bool {
	return r.IsActive() && now.Before(r.EndDate)
}

// IsSoldOut returns true if every number has been sold
func (r *Raffle) IsSoldOut() bool {
	return r.SoldCount >= r.TotalNumbers
}

// HasEnded returns true if the sales window is over at now
func (r *Raffle) HasEnded(now time.Time) bool {
	return !now.Before(r.EndDate)
}

// IsDrawDue returns true if the raffle may be drawn at now
func (r *Raffle) IsDrawDue(now time.Time) bool {
	return r.HasEnded(now) || r.IsSoldOut()
}

// ContainsNumber returns true if n is a valid number for this raffle
func (r *Raffle) ContainsNumber(n int64) bool {
	return n >= 1 && n <= r.TotalNumbers
}

// PriceFor returns the total price of count numbers
func (r *Raffle) PriceFor(count int) decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(int64(count))).Round(2)
}

// ProgressPercent returns the sold share of the raffle, 0 to 100
func (r *Raffle) ProgressPercent() float64 {
	if r.TotalNumbers == 0 {
		return 0
	}
	return float64(r.SoldCount) / float64(r.TotalNumbers) * 100
}

// Complete records the draw result
func (r *Raffle) Complete(winnerNumber, winnerID int64, proof string, drawnAt time.Time) {
	r.Status = RaffleStatusCompleted
	r.WinnerNumber = &winnerNumber
	r.WinnerID = &winnerID
	r.DrawProof = &proof
	r.DrawDate = &drawnAt
}

// IsEditable returns true while the raffle is still a draft
func (r *Raffle) IsEditable() bool {
	return r.Status == RaffleStatusDraft
}

// RaffleSort names a column raffle listings can be ordered by
type RaffleSort string

const (
	RaffleSortCreatedAt RaffleSort = "created_at"
	RaffleSortEndDate   RaffleSort = "end_date"
	RaffleSortPrice     RaffleSort = "price"
	RaffleSortSoldCount RaffleSort = "sold_count"
)

// Valid reports whether s is a known sort column
func (s RaffleSort) Valid() bool {
	switch s {
	case RaffleSortCreatedAt, RaffleSortEndDate, RaffleSortPrice, RaffleSortSoldCount:
		return true
	}
	return false
}

// RaffleFilter narrows a raffle listing. Zero fields match everything.
type RaffleFilter struct {
	Status    *RaffleStatus
	Search    string // Matched against title and description, case insensitive
	CreatorID *int64
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    RaffleSort // Defaults to created_at
	Ascending bool
	Limit     int
	Offset    int
}
