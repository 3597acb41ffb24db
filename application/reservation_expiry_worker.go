package application

import (
	"context"
	"fmt"
	"time"

	"rifei/config"
	"rifei/domain/clock"
	"rifei/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const expiryBatchSize = 500

// ReservationExpiryWorker returns lapsed holds and lapsed payments to the pool
type ReservationExpiryWorker struct {
	tx       txRunner
	interval time.Duration
}

// NewReservationExpiryWorker creates a new expiry worker
func NewReservationExpiryWorker(uowFactory UnitOfWorkFactory, clk clock.Clock, cfg *config.Config) *ReservationExpiryWorker {
	return &ReservationExpiryWorker{
		tx:       newTxRunner(uowFactory, clk, cfg),
		interval: cfg.ExpirySweepInterval,
	}
}

// Start runs the sweep on every interval until ctx is cancelled or the returned stop function is called
func (w *ReservationExpiryWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	go func() {
		log.WithField("interval", w.interval).Info("Reservation expiry worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Reservation expiry worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Reservation expiry worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				if _, _, err := w.Sweep(ctx); err != nil {
					log.WithError(err).Error("Expiry sweep failed")
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// Sweep expires every lapsed reservation and pending payment, in batches
func (w *ReservationExpiryWorker) Sweep(ctx context.Context) (reservations int, payments int, err error) {
	reservations, err = w.drain(ctx, "expire_reservations", func(svc *domainServices) (int, error) {
		return svc.reservations.ExpireStale(ctx, expiryBatchSize)
	})
	observability.GetMetrics().RecordExpired(observability.SweepReservation, reservations)
	if err != nil {
		return reservations, 0, fmt.Errorf("failed to expire reservations: %w", err)
	}

	payments, err = w.drain(ctx, "expire_payments", func(svc *domainServices) (int, error) {
		return svc.payments.ExpirePending(ctx, expiryBatchSize)
	})
	observability.GetMetrics().RecordExpired(observability.SweepPayment, payments)
	if err != nil {
		return reservations, payments, fmt.Errorf("failed to expire payments: %w", err)
	}

	if reservations > 0 || payments > 0 {
		log.WithFields(log.Fields{
			"reservations": reservations,
			"payments":     payments,
		}).Info("Expired stale holds")
	}
	return reservations, payments, nil
}

// drain repeats batch in its own transaction until a batch comes back short
func (w *ReservationExpiryWorker) drain(ctx context.Context, operation string, batch func(svc *domainServices) (int, error)) (int, error) {
	total := 0
	for {
		var count int
		err := w.tx.inTxWithRetry(ctx, operation, func(uow UnitOfWork, svc *domainServices) error {
			var err error
			count, err = batch(svc)
			return err
		})
		if err != nil {
			return total, err
		}
		total += count
		if count < expiryBatchSize || ctx.Err() != nil {
			return total, nil
		}
	}
}
