package services

import (
	"context"
	"errors"
	"fmt"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/events"
	"rifei/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type reservationService struct {
	raffleRepo      interfaces.RaffleRepository
	reservationRepo interfaces.ReservationRepository
	ledger          interfaces.NumberLedger
	eventPublisher  interfaces.EventPublisher
	clock           clock.Clock
	config          *config.Config
}

// NewReservationService creates a new reservation service
func NewReservationService(
	raffleRepo interfaces.RaffleRepository,
	reservationRepo interfaces.ReservationRepository,
	ledger interfaces.NumberLedger,
	eventPublisher interfaces.EventPublisher,
	clk clock.Clock,
	cfg *config.Config,
) interfaces.ReservationService {
	return &reservationService{
		raffleRepo:      raffleRepo,
		reservationRepo: reservationRepo,
		ledger:          ledger,
		eventPublisher:  eventPublisher,
		clock:           clk,
		config:          cfg,
	}
}

// Create holds numbers for a user. Nothing is held unless every number is claimed.
func (s *reservationService) Create(ctx context.Context, raffleID, userID int64, numbers []int64) (*entities.Reservation, error) {
	if err := s.validateNumbers(numbers); err != nil {
		return nil, err
	}

	// Lock the raffle row: claims for one raffle are serialized
	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}

	now := s.clock.Now()
	if !raffle.CanReserve(now) {
		return nil, domain.ErrRaffleNotActive
	}

	for _, n := range numbers {
		if !raffle.ContainsNumber(n) {
			return nil, fmt.Errorf("number %d not in [1, %d]: %w", n, raffle.TotalNumbers, domain.ErrNumberOutOfRange)
		}
	}

	if raffle.MaxNumbersPerUser != nil {
		held, err := s.ledger.CountHeldByUser(ctx, raffle.ID, userID)
		if err != nil {
			return nil, err
		}
		if held+int64(len(numbers)) > *raffle.MaxNumbersPerUser {
			return nil, fmt.Errorf("user holds %d of %d allowed numbers: %w", held, *raffle.MaxNumbersPerUser, domain.ErrTooManyNumbers)
		}
	}

	reservation := &entities.Reservation{
		ID:          uuid.New(),
		RaffleID:    raffle.ID,
		UserID:      userID,
		Numbers:     numbers,
		TotalAmount: raffle.PriceFor(len(numbers)),
		Status:      entities.ReservationStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.ReservationTTL),
	}

	if err := s.reservationRepo.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	if err := s.ledger.Claim(ctx, raffle, numbers, reservation.ID, reservation.ExpiresAt); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.ReservationCreatedEvent{
		ReservationID: reservation.ID,
		RaffleID:      reservation.RaffleID,
		UserID:        reservation.UserID,
		Numbers:       reservation.Numbers,
		ExpiresAt:     reservation.ExpiresAt,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish reservation created event")
	}

	return reservation, nil
}

func (s *reservationService) validateNumbers(numbers []int64) error {
	if len(numbers) == 0 {
		return domain.ErrNoNumbers
	}

	limit := s.config.ReservationMaxNumbers
	if limit <= 0 || limit > entities.MaxNumbersPerReservation {
		limit = entities.MaxNumbersPerReservation
	}
	if len(numbers) > limit {
		return fmt.Errorf("%d numbers requested, at most %d allowed: %w", len(numbers), limit, domain.ErrTooManyNumbers)
	}

	seen := make(map[int64]struct{}, len(numbers))
	for _, n := range numbers {
		if _, dup := seen[n]; dup {
			return fmt.Errorf("number %d requested twice: %w", n, domain.ErrDuplicateNumbers)
		}
		seen[n] = struct{}{}
	}

	return nil
}

// GetByID returns a reservation owned by userID
func (s *reservationService) GetByID(ctx context.Context, reservationID uuid.UUID, userID int64) (*entities.Reservation, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return nil, domain.ErrReservationNotFound
	}
	if reservation.UserID != userID {
		return nil, domain.ErrReservationNotOwned
	}
	return reservation, nil
}

// Confirm marks a pending reservation confirmed and its numbers sold
func (s *reservationService) Confirm(ctx context.Context, reservationID uuid.UUID) (*entities.Reservation, error) {
	reservation, err := s.reservationRepo.GetByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return nil, domain.ErrReservationNotFound
	}

	now := s.clock.Now()
	switch reservation.Status {
	case entities.ReservationStatusConfirmed:
		return reservation, nil
	case entities.ReservationStatusCancelled:
		return reservation, domain.ErrReservationCancelled
	case entities.ReservationStatusExpired:
		return reservation, domain.ErrAlreadyExpired
	}

	if reservation.IsExpiredAt(now) {
		if err := s.expire(ctx, reservation); err != nil {
			return nil, err
		}
		return reservation, domain.ErrAlreadyExpired
	}

	if err := s.ledger.MarkSold(ctx, reservation); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExpired) {
			return nil, err
		}
		if err := s.expire(ctx, reservation); err != nil {
			return nil, err
		}
		return reservation, domain.ErrAlreadyExpired
	}

	if err := s.reservationRepo.UpdateStatus(ctx, reservation.ID, entities.ReservationStatusConfirmed, now); err != nil {
		return nil, fmt.Errorf("failed to confirm reservation: %w", err)
	}
	reservation.Status = entities.ReservationStatusConfirmed
	reservation.UpdatedAt = now

	return reservation, nil
}

// Cancel releases a pending reservation on behalf of its owner. A reservation past
// its TTL is expired instead and returned along with ErrAlreadyExpired.
func (s *reservationService) Cancel(ctx context.Context, reservationID uuid.UUID, userID int64) (*entities.Reservation, error) {
	reservation, err := s.reservationRepo.GetByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return nil, domain.ErrReservationNotFound
	}
	if reservation.UserID != userID {
		return nil, domain.ErrReservationNotOwned
	}

	switch {
	case reservation.Status == entities.ReservationStatusCancelled:
		return reservation, nil
	case reservation.Status == entities.ReservationStatusConfirmed:
		return nil, domain.ErrAlreadyConfirmed
	case reservation.Status == entities.ReservationStatusExpired:
		return reservation, domain.ErrAlreadyExpired
	case reservation.IsExpiredAt(s.clock.Now()):
		if err := s.expire(ctx, reservation); err != nil {
			return nil, err
		}
		return reservation, domain.ErrAlreadyExpired
	}

	if err := s.cancel(ctx, reservation, "user_cancelled"); err != nil {
		return nil, err
	}
	return reservation, nil
}

// Release cancels a pending reservation without an ownership check. Reservations
// that already left pending are returned unchanged.
func (s *reservationService) Release(ctx context.Context, reservationID uuid.UUID, reason string) (*entities.Reservation, error) {
	reservation, err := s.reservationRepo.GetByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return nil, domain.ErrReservationNotFound
	}
	if !reservation.IsPending() {
		return reservation, nil
	}

	if err := s.cancel(ctx, reservation, reason); err != nil {
		return nil, err
	}
	return reservation, nil
}

// ExpireStale expires pending reservations past their TTL and releases their numbers
func (s *reservationService) ExpireStale(ctx context.Context, limit int) (int, error) {
	expired, err := s.reservationRepo.ExpireStale(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to expire reservations: %w", err)
	}

	for _, reservation := range expired {
		if err := s.ledger.Release(ctx, reservation.ID); err != nil {
			return 0, err
		}
		s.publishReleased(reservation, true, "ttl")
	}

	return len(expired), nil
}

// CancelPendingForRaffle cancels every pending reservation of a raffle
func (s *reservationService) CancelPendingForRaffle(ctx context.Context, raffleID int64, reason string) (int, error) {
	cancelled, err := s.reservationRepo.CancelPendingByRaffle(ctx, raffleID, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to cancel pending reservations: %w", err)
	}

	for _, reservation := range cancelled {
		if err := s.ledger.Release(ctx, reservation.ID); err != nil {
			return 0, err
		}
		s.publishReleased(reservation, false, reason)
	}

	return len(cancelled), nil
}

func (s *reservationService) expire(ctx context.Context, reservation *entities.Reservation) error {
	if err := s.reservationRepo.UpdateStatus(ctx, reservation.ID, entities.ReservationStatusExpired, s.clock.Now()); err != nil {
		return fmt.Errorf("failed to expire reservation: %w", err)
	}
	if err := s.ledger.Release(ctx, reservation.ID); err != nil {
		return err
	}
	reservation.Status = entities.ReservationStatusExpired
	s.publishReleased(reservation, true, "ttl")
	return nil
}

func (s *reservationService) cancel(ctx context.Context, reservation *entities.Reservation, reason string) error {
	if err := s.reservationRepo.UpdateStatus(ctx, reservation.ID, entities.ReservationStatusCancelled, s.clock.Now()); err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if err := s.ledger.Release(ctx, reservation.ID); err != nil {
		return err
	}
	reservation.Status = entities.ReservationStatusCancelled
	s.publishReleased(reservation, false, reason)
	return nil
}

func (s *reservationService) publishReleased(reservation *entities.Reservation, expired bool, reason string) {
	if err := s.eventPublisher.Publish(events.ReservationReleasedEvent{
		ReservationID: reservation.ID,
		RaffleID:      reservation.RaffleID,
		UserID:        reservation.UserID,
		Numbers:       reservation.Numbers,
		Expired:       expired,
		Reason:        reason,
	}); err != nil {
		log.WithError(err).WithField("reservationId", reservation.ID).Warn("Failed to publish reservation released event")
	}
}
