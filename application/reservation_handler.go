package application

import (
	"context"
	"errors"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultReservationListLimit = 20

// ReservationHandler serves number holds for buyers
type ReservationHandler struct {
	tx txRunner
}

// NewReservationHandler creates a new reservation handler
func NewReservationHandler(uowFactory UnitOfWorkFactory, clk clock.Clock, cfg *config.Config) *ReservationHandler {
	return &ReservationHandler{tx: newTxRunner(uowFactory, clk, cfg)}
}

// CreateReservation holds numbers for the actor. Storage conflicts are retried; once
// retries run out the numbers are reported unavailable.
func (h *ReservationHandler) CreateReservation(ctx context.Context, actor Actor, raffleID int64, numbers []int64) (*entities.Reservation, error) {
	var reservation *entities.Reservation
	err := h.tx.inTxWithRetry(ctx, "create_reservation", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		reservation, err = svc.reservations.Create(ctx, raffleID, actor.UserID, numbers)
		return err
	})

	if err != nil {
		if errors.Is(err, domain.ErrStorageConflict) {
			err = h.contendedNumbers(ctx, raffleID, numbers)
		}
		if errors.Is(err, domain.ErrNumbersUnavailable) {
			observability.GetMetrics().RecordReservationConflict()
		}
		return nil, err
	}

	log.WithFields(log.Fields{
		"reservationId": reservation.ID,
		"raffleId":      raffleID,
		"userId":        actor.UserID,
		"count":         len(reservation.Numbers),
	}).Info("Reservation created")

	return reservation, nil
}

// contendedNumbers names the requested numbers lost to other buyers once conflict
// retries ran out. When the pool shows none taken, all of them were contended.
func (h *ReservationHandler) contendedNumbers(ctx context.Context, raffleID int64, numbers []int64) error {
	available, err := h.GetAvailableNumbers(ctx, raffleID)
	if err != nil {
		log.WithError(err).WithField("raffleId", raffleID).Warn("Failed to load availability after claim conflicts")
		return &domain.NumbersUnavailableError{Numbers: numbers}
	}
	return &domain.NumbersUnavailableError{Numbers: lostNumbers(numbers, available)}
}

func lostNumbers(requested, available []int64) []int64 {
	free := make(map[int64]bool, len(available))
	for _, n := range available {
		free[n] = true
	}
	lost := make([]int64, 0, len(requested))
	for _, n := range requested {
		if !free[n] {
			lost = append(lost, n)
		}
	}
	if len(lost) == 0 {
		return append(lost, requested...)
	}
	return lost
}

// GetReservation returns one of the actor's reservations
func (h *ReservationHandler) GetReservation(ctx context.Context, actor Actor, reservationID uuid.UUID) (*entities.Reservation, error) {
	var reservation *entities.Reservation
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		reservation, err = svc.reservations.GetByID(ctx, reservationID, actor.UserID)
		return err
	})
	return reservation, err
}

// ListReservations returns the actor's most recent reservations
func (h *ReservationHandler) ListReservations(ctx context.Context, actor Actor) ([]*entities.Reservation, error) {
	var reservations []*entities.Reservation
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		reservations, err = uow.ReservationRepository().ListByUser(ctx, actor.UserID, defaultReservationListLimit)
		return err
	})
	return reservations, err
}

// CancelReservation releases one of the actor's pending reservations. An expired
// reservation already gave its numbers back, so it is returned as is.
func (h *ReservationHandler) CancelReservation(ctx context.Context, actor Actor, reservationID uuid.UUID) (*entities.Reservation, error) {
	var reservation *entities.Reservation
	err := h.tx.inTxWithRetry(ctx, "cancel_reservation", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		reservation, err = svc.reservations.Cancel(ctx, reservationID, actor.UserID)
		if errors.Is(err, domain.ErrAlreadyExpired) && reservation != nil {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"reservationId": reservationID,
		"userId":        actor.UserID,
		"status":        reservation.Status,
	}).Info("Reservation cancelled")
	return reservation, nil
}

// GetAvailableNumbers lists the numbers of a raffle that can be reserved now
func (h *ReservationHandler) GetAvailableNumbers(ctx context.Context, raffleID int64) ([]int64, error) {
	var available []int64
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		available, err = svc.ledger.GetAvailable(ctx, raffleID)
		return err
	})
	return available, err
}
