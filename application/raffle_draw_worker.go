package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/interfaces"
	"rifei/domain/services"

	log "github.com/sirupsen/logrus"
)

// Sold out raffles become due before their end date, so the worker never sleeps longer than this
const (
	maxDrawWait = time.Minute
	minDrawWait = time.Second
)

// RaffleDrawWorker draws raffles when they end or sell out
type RaffleDrawWorker struct {
	tx        txRunner
	announcer DrawAnnouncer
}

// NewRaffleDrawWorker creates a new raffle draw worker. announcer may be nil.
func NewRaffleDrawWorker(uowFactory UnitOfWorkFactory, announcer DrawAnnouncer, clk clock.Clock, cfg *config.Config) *RaffleDrawWorker {
	return &RaffleDrawWorker{
		tx:        newTxRunner(uowFactory, clk, cfg),
		announcer: announcer,
	}
}

// Start begins the raffle draw worker
func (w *RaffleDrawWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.Info("Raffle draw worker started")

		for {
			// First, process any due raffles
			if err := w.ProcessDueRaffles(ctx); err != nil {
				log.WithError(err).Error("Error processing due raffles")
			}

			waitDuration := maxDrawWait
			if next := w.nextEndDate(ctx); next != nil {
				if until := next.Sub(w.tx.clock.Now()); until < waitDuration {
					waitDuration = until
				}
			}
			if waitDuration < minDrawWait {
				waitDuration = minDrawWait
			}

			select {
			case <-ctx.Done():
				log.Info("Raffle draw worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Raffle draw worker shutting down (stop requested)...")
				return
			case <-time.After(waitDuration):
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

func (w *RaffleDrawWorker) nextEndDate(ctx context.Context) *time.Time {
	var next *time.Time
	err := w.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		next, err = uow.RaffleRepository().GetNextEndDate(ctx)
		return err
	})
	if err != nil {
		log.WithError(err).Error("Failed to get next raffle end date")
		return nil
	}
	return next
}

// ProcessDueRaffles draws every raffle that ended or sold out. Raffles that
// ended without sales are cancelled.
func (w *RaffleDrawWorker) ProcessDueRaffles(ctx context.Context) error {
	var due []*entities.Raffle
	err := w.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		due, err = uow.RaffleRepository().GetDueForDraw(ctx, w.tx.clock.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get due raffles: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	log.Infof("Found %d raffles due for draw", len(due))

	var drawn, cancelled, failed int
	for _, raffle := range due {
		outcome, err := w.processRaffle(ctx, raffle.ID)
		switch {
		case err != nil:
			log.WithFields(log.Fields{
				"raffleId": raffle.ID,
				"error":    err,
			}).Error("Failed to process due raffle")
			failed++
		case outcome == entities.RaffleStatusCompleted:
			drawn++
		case outcome == entities.RaffleStatusCancelled:
			cancelled++
		}
	}

	log.WithFields(log.Fields{
		"due":       len(due),
		"drawn":     drawn,
		"cancelled": cancelled,
		"failed":    failed,
	}).Info("Completed raffle draw processing")

	return nil
}

// processRaffle draws one raffle, or cancels it when it ended unsold
func (w *RaffleDrawWorker) processRaffle(ctx context.Context, raffleID int64) (entities.RaffleStatus, error) {
	var result *interfaces.RaffleDrawResult
	err := w.tx.inTxWithRetry(ctx, "draw_raffle", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		result, err = svc.raffles.Draw(ctx, raffleID)
		return err
	})
	if err == nil {
		logDraw(result)
		announce(ctx, w.announcer, result)
		return entities.RaffleStatusCompleted, nil
	}
	if errors.Is(err, domain.ErrRaffleNotActive) {
		// Cancelled or drawn by someone else since it was listed
		return "", nil
	}
	if !services.IsDrawSkippable(err) {
		return "", err
	}
	if !errors.Is(err, domain.ErrNoTicketsSold) {
		return "", nil
	}

	var raffle *entities.Raffle
	err = w.tx.inTxWithRetry(ctx, "cancel_raffle", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		raffle, err = svc.raffles.Cancel(ctx, raffleID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to cancel unsold raffle: %w", err)
	}

	log.WithField("raffleId", raffle.ID).Info("Cancelled raffle that ended without sales")
	return entities.RaffleStatusCancelled, nil
}
