package interfaces

import (
	"context"
	"time"

	"rifei/domain/entities"
	"rifei/domain/events"

	"github.com/google/uuid"
)

// RaffleRepository defines the interface for raffle data access
type RaffleRepository interface {
	// Create inserts a raffle and sets its ID and timestamps
	Create(ctx context.Context, raffle *entities.Raffle) error

	// GetByID retrieves a raffle, nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Raffle, error)

	// GetByIDForUpdate retrieves a raffle and locks its row until the transaction ends.
	// Number claims for a raffle are serialized through this lock.
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Raffle, error)

	// Update persists mutable raffle fields
	Update(ctx context.Context, raffle *entities.Raffle) error

	// Delete removes a draft raffle with no sales. It reports false when no such raffle matched.
	Delete(ctx context.Context, id int64) (bool, error)

	// AdjustSoldCount adds delta to sold_count and returns the new value
	AdjustSoldCount(ctx context.Context, id int64, delta int64) (int64, error)

	// List returns a page of raffles matching filter and the total match count
	List(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error)

	// ListEndingSoon returns active raffles ending in (now, until], soonest first
	ListEndingSoon(ctx context.Context, now, until time.Time, limit int) ([]*entities.Raffle, error)

	// GetDueForDraw returns active raffles whose end date has passed or that are sold out
	GetDueForDraw(ctx context.Context, now time.Time) ([]*entities.Raffle, error)

	// GetNextEndDate returns the earliest end date among active raffles, nil if none
	GetNextEndDate(ctx context.Context) (*time.Time, error)
}

// NumberClaimRepository defines the interface for per-number ownership state
type NumberClaimRepository interface {
	// Claim reserves numbers for a reservation. It is all or nothing: when any number is
	// already sold or actively reserved, nothing is written and the lost numbers are returned.
	Claim(ctx context.Context, raffleID int64, numbers []int64, reservationID uuid.UUID, expiresAt, now time.Time) (lost []int64, err error)

	// MarkSold turns a reservation's claims into sold claims
	MarkSold(ctx context.Context, reservationID uuid.UUID) (int64, error)

	// Release deletes every claim held by a reservation
	Release(ctx context.Context, reservationID uuid.UUID) (int64, error)

	// GetAvailable returns the numbers in [1, total] that are neither sold nor actively reserved
	GetAvailable(ctx context.Context, raffleID int64, total int64, now time.Time) ([]int64, error)

	// CountHeldByUser counts numbers a user holds in a raffle, sold or actively reserved
	CountHeldByUser(ctx context.Context, raffleID, userID int64, now time.Time) (int64, error)
}

// ReservationRepository defines the interface for reservation data access
type ReservationRepository interface {
	// Create inserts a reservation
	Create(ctx context.Context, reservation *entities.Reservation) error

	// GetByID retrieves a reservation, nil if it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Reservation, error)

	// GetByIDForUpdate retrieves a reservation and locks its row
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.Reservation, error)

	// UpdateStatus transitions a reservation
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.ReservationStatus, now time.Time) error

	// ExpireStale marks up to limit pending reservations past their expiry as expired and
	// returns them. Rows locked by other transactions are skipped.
	ExpireStale(ctx context.Context, now time.Time, limit int) ([]*entities.Reservation, error)

	// CancelPendingByRaffle cancels every pending reservation of a raffle and returns them
	CancelPendingByRaffle(ctx context.Context, raffleID int64, now time.Time) ([]*entities.Reservation, error)

	// ListByUser returns a user's reservations, newest first
	ListByUser(ctx context.Context, userID int64, limit int) ([]*entities.Reservation, error)
}

// PaymentRepository defines the interface for payment data access
type PaymentRepository interface {
	// Create inserts a payment and sets its ID and timestamps
	Create(ctx context.Context, payment *entities.Payment) error

	// GetByID retrieves a payment, nil if it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Payment, error)

	// GetByIDForUpdate retrieves a payment and locks its row
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Payment, error)

	// GetPendingByReservation returns the pending payment of a reservation, nil if none
	GetPendingByReservation(ctx context.Context, reservationID uuid.UUID) (*entities.Payment, error)

	// Update persists mutable payment fields
	Update(ctx context.Context, payment *entities.Payment) error

	// ExpirePending cancels up to limit pending payments past their expiry and returns them
	ExpirePending(ctx context.Context, now time.Time, limit int) ([]*entities.Payment, error)

	// List returns payments matching filter, newest first
	List(ctx context.Context, filter entities.PaymentFilter) ([]*entities.Payment, error)
}

// TicketRepository defines the interface for sold ticket data access
type TicketRepository interface {
	// CreateBatch inserts tickets and sets their IDs
	CreateBatch(ctx context.Context, tickets []*entities.Ticket) error

	// DeleteByPayment removes the tickets bought by a payment
	DeleteByPayment(ctx context.Context, paymentID int64) (int64, error)

	// GetByRaffle returns a raffle's tickets ordered by number
	GetByRaffle(ctx context.Context, raffleID int64) ([]*entities.Ticket, error)

	// GetByUser returns a user's tickets in a raffle ordered by number
	GetByUser(ctx context.Context, raffleID, userID int64) ([]*entities.Ticket, error)

	// MarkWinner flags the winning ticket
	MarkWinner(ctx context.Context, ticketID int64) error

	// GetParticipantSummary returns ticket counts per buyer
	GetParticipantSummary(ctx context.Context, raffleID int64) ([]*entities.RaffleParticipantInfo, error)
}

// StatsRepository defines the interface for aggregate queries
type StatsRepository interface {
	// GetRaffleStats summarizes sales for a raffle
	GetRaffleStats(ctx context.Context, raffleID int64, now time.Time) (*entities.RaffleStats, error)

	// GetPaymentStats aggregates payments matching filter
	GetPaymentStats(ctx context.Context, filter entities.PaymentFilter) (*entities.PaymentStats, error)

	// GetMarketplaceStats aggregates every raffle
	GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error)
}

// GatewayEventRepository defines the interface for webhook delivery records
type GatewayEventRepository interface {
	// Record stores a delivery, or bumps the attempt count of a known one and returns it
	Record(ctx context.Context, event *entities.GatewayEvent) (*entities.GatewayEvent, error)

	// MarkProcessed stores the processing outcome of a delivery
	MarkProcessed(ctx context.Context, id int64, outcome string, processingErr error, now time.Time) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}
