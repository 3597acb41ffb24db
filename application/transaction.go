package application

import (
	"context"
	"fmt"

	"rifei/config"
	"rifei/domain/clock"
)

// txRunner runs work inside a unit of work with domain services bound to it
type txRunner struct {
	uowFactory UnitOfWorkFactory
	clock      clock.Clock
	config     *config.Config
}

func newTxRunner(uowFactory UnitOfWorkFactory, clk clock.Clock, cfg *config.Config) txRunner {
	return txRunner{uowFactory: uowFactory, clock: clk, config: cfg}
}

// inTx commits when fn succeeds and rolls back otherwise
func (r txRunner) inTx(ctx context.Context, fn func(uow UnitOfWork, svc *domainServices) error) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow, newDomainServices(uow, r.clock, r.config)); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// inTxWithRetry is inTx retried on storage conflicts
func (r txRunner) inTxWithRetry(ctx context.Context, operation string, fn func(uow UnitOfWork, svc *domainServices) error) error {
	return withStorageRetry(ctx, r.config.StorageRetryAttempts, operation, func() error {
		return r.inTx(ctx, fn)
	})
}
