package services

import (
	"context"
	"fmt"
	"time"

	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/interfaces"

	"github.com/google/uuid"
)

type numberLedger struct {
	raffleRepo interfaces.RaffleRepository
	claimRepo  interfaces.NumberClaimRepository
	clock      clock.Clock
}

// NewNumberLedger creates the per-raffle number ledger
func NewNumberLedger(
	raffleRepo interfaces.RaffleRepository,
	claimRepo interfaces.NumberClaimRepository,
	clk clock.Clock,
) interfaces.NumberLedger {
	return &numberLedger{
		raffleRepo: raffleRepo,
		claimRepo:  claimRepo,
		clock:      clk,
	}
}

// GetAvailable returns numbers that are neither sold nor actively reserved
func (l *numberLedger) GetAvailable(ctx context.Context, raffleID int64) ([]int64, error) {
	raffle, err := l.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}

	available, err := l.claimRepo.GetAvailable(ctx, raffle.ID, raffle.TotalNumbers, l.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get available numbers: %w", err)
	}

	return available, nil
}

// Claim holds numbers for a reservation. The caller must hold the raffle row lock.
func (l *numberLedger) Claim(ctx context.Context, raffle *entities.Raffle, numbers []int64, reservationID uuid.UUID, expiresAt time.Time) error {
	lost, err := l.claimRepo.Claim(ctx, raffle.ID, numbers, reservationID, expiresAt, l.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to claim numbers: %w", err)
	}
	if len(lost) > 0 {
		return &domain.NumbersUnavailableError{Numbers: lost}
	}
	return nil
}

// MarkSold converts a reservation's claims to sold
func (l *numberLedger) MarkSold(ctx context.Context, reservation *entities.Reservation) error {
	marked, err := l.claimRepo.MarkSold(ctx, reservation.ID)
	if err != nil {
		return fmt.Errorf("failed to mark numbers sold: %w", err)
	}
	if marked != int64(len(reservation.Numbers)) {
		return fmt.Errorf("reservation %s holds %d of %d numbers: %w",
			reservation.ID, marked, len(reservation.Numbers), domain.ErrAlreadyExpired)
	}
	return nil
}

// Release returns a reservation's numbers to the pool
func (l *numberLedger) Release(ctx context.Context, reservationID uuid.UUID) error {
	if _, err := l.claimRepo.Release(ctx, reservationID); err != nil {
		return fmt.Errorf("failed to release numbers: %w", err)
	}
	return nil
}

// CountHeldByUser counts a user's sold and actively reserved numbers in a raffle
func (l *numberLedger) CountHeldByUser(ctx context.Context, raffleID, userID int64) (int64, error) {
	count, err := l.claimRepo.CountHeldByUser(ctx, raffleID, userID, l.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to count held numbers: %w", err)
	}
	return count, nil
}
