package interfaces

import (
	"context"
	"time"

	"rifei/domain/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NumberLedger owns per-number state for raffles
type NumberLedger interface {
	// GetAvailable returns numbers that can currently be reserved
	GetAvailable(ctx context.Context, raffleID int64) ([]int64, error)

	// Claim holds numbers for a reservation or fails with the numbers it lost
	Claim(ctx context.Context, raffle *entities.Raffle, numbers []int64, reservationID uuid.UUID, expiresAt time.Time) error

	// MarkSold converts a reservation's held numbers to sold. It fails with
	// ErrAlreadyExpired if any of the reservation's claims were taken over.
	MarkSold(ctx context.Context, reservation *entities.Reservation) error

	// Release returns a reservation's numbers to the pool
	Release(ctx context.Context, reservationID uuid.UUID) error

	// CountHeldByUser counts numbers a user holds in a raffle, sold or actively reserved
	CountHeldByUser(ctx context.Context, raffleID, userID int64) (int64, error)
}

// ReservationService manages time-boxed holds on numbers
type ReservationService interface {
	// Create holds numbers for a user in an active raffle
	Create(ctx context.Context, raffleID, userID int64, numbers []int64) (*entities.Reservation, error)

	// GetByID returns a reservation owned by userID
	GetByID(ctx context.Context, reservationID uuid.UUID, userID int64) (*entities.Reservation, error)

	// Confirm marks a pending reservation confirmed and its numbers sold.
	// An expired reservation is released and ErrAlreadyExpired returned; the caller
	// must still commit for the release to persist.
	Confirm(ctx context.Context, reservationID uuid.UUID) (*entities.Reservation, error)

	// Cancel releases a pending reservation on behalf of its owner
	Cancel(ctx context.Context, reservationID uuid.UUID, userID int64) (*entities.Reservation, error)

	// Release cancels a pending reservation without an ownership check
	Release(ctx context.Context, reservationID uuid.UUID, reason string) (*entities.Reservation, error)

	// ExpireStale expires pending reservations past their TTL
	ExpireStale(ctx context.Context, limit int) (int, error)

	// CancelPendingForRaffle cancels every pending reservation of a raffle
	CancelPendingForRaffle(ctx context.Context, raffleID int64, reason string) (int, error)
}

// PaymentReconciler maps the gateway payment lifecycle onto the ledger
type PaymentReconciler interface {
	// CreatePayment opens a pending payment for a reservation, or returns the existing one
	CreatePayment(ctx context.Context, reservationID uuid.UUID, userID int64) (payment *entities.Payment, created bool, err error)

	// AttachCheckout stores the gateway checkout details on a payment
	AttachCheckout(ctx context.Context, paymentID int64, session *entities.CheckoutSession) (*entities.Payment, error)

	// ApplyGatewayEvent settles a gateway notification
	ApplyGatewayEvent(ctx context.Context, event entities.PaymentEvent) (*entities.ApplyResult, error)

	// Refund reverses an approved payment
	Refund(ctx context.Context, paymentID int64) (*entities.Payment, error)

	// ExpirePending cancels pending payments past their expiry
	ExpirePending(ctx context.Context, limit int) (int, error)

	// GetByID returns a payment
	GetByID(ctx context.Context, paymentID int64) (*entities.Payment, error)
}

// CreateRaffleParams holds the fields needed to create a raffle
type CreateRaffleParams struct {
	CreatorID         int64
	Title             string
	Description       string
	Price             decimal.Decimal
	TotalNumbers      int64
	MaxNumbersPerUser *int64
	EndDate           time.Time
}

// UpdateRaffleParams holds the draft fields to change. Nil fields are left as they are.
type UpdateRaffleParams struct {
	Title             *string
	Description       *string
	Price             *decimal.Decimal
	TotalNumbers      *int64
	MaxNumbersPerUser *int64
	EndDate           *time.Time
}

// RaffleDrawResult describes a completed draw
type RaffleDrawResult struct {
	Raffle       *entities.Raffle
	WinnerTicket *entities.Ticket
	TicketCount  int
}

// DrawVerification is the outcome of recomputing a completed draw from its proof
type DrawVerification struct {
	Raffle      *entities.Raffle
	TicketCount int
	Verified    bool
}

// RaffleService controls the raffle lifecycle
type RaffleService interface {
	// Create stores a new draft raffle
	Create(ctx context.Context, params CreateRaffleParams) (*entities.Raffle, error)

	// GetByID returns a raffle
	GetByID(ctx context.Context, raffleID int64) (*entities.Raffle, error)

	// List returns a page of raffles matching filter and the total count
	List(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error)

	// ListEndingSoon returns active raffles ending within days, soonest first
	ListEndingSoon(ctx context.Context, days, limit int) ([]*entities.Raffle, error)

	// Update edits a draft raffle
	Update(ctx context.Context, raffleID int64, params UpdateRaffleParams) (*entities.Raffle, error)

	// Delete removes a draft raffle that has sold nothing
	Delete(ctx context.Context, raffleID int64) error

	// Activate opens a draft raffle for sales
	Activate(ctx context.Context, raffleID int64) (*entities.Raffle, error)

	// Draw selects a winner among sold numbers
	Draw(ctx context.Context, raffleID int64) (*RaffleDrawResult, error)

	// Cancel calls off a draft or active raffle
	Cancel(ctx context.Context, raffleID int64) (*entities.Raffle, error)

	// VerifyDraw recomputes a completed raffle's draw from its stored proof
	VerifyDraw(ctx context.Context, raffleID int64) (*DrawVerification, error)
}

// StatsService answers aggregate queries
type StatsService interface {
	// GetRaffleStats summarizes sales for a raffle
	GetRaffleStats(ctx context.Context, raffleID int64) (*entities.RaffleStats, error)

	// GetPaymentStats aggregates payments for a raffle or a user
	GetPaymentStats(ctx context.Context, filter entities.PaymentFilter) (*entities.PaymentStats, error)

	// GetMarketplaceStats aggregates every raffle
	GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error)

	// GetUserPayments returns a user's recent payments
	GetUserPayments(ctx context.Context, userID int64, limit int) ([]*entities.Payment, error)

	// GetRafflePayments returns a raffle's payments, optionally by status
	GetRafflePayments(ctx context.Context, raffleID int64, status *entities.PaymentStatus) ([]*entities.Payment, error)
}
