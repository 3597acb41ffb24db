package repository

import (
	"context"
	"errors"
	"fmt"

	"rifei/application"
	"rifei/database"
	"rifei/domain/interfaces"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher application.TransactionalEventPublisher
	raffleRepo             interfaces.RaffleRepository
	numberClaimRepo        interfaces.NumberClaimRepository
	reservationRepo        interfaces.ReservationRepository
	paymentRepo            interfaces.PaymentRepository
	ticketRepo             interfaces.TicketRepository
	statsRepo              interfaces.StatsRepository
	gatewayEventRepo       interfaces.GatewayEventRepository
}

type unitOfWorkFactory struct {
	db *database.DB
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

// CreateWithPublisher creates a new UnitOfWork that flushes transactionalPublisher on commit
func (f *unitOfWorkFactory) CreateWithPublisher(transactionalPublisher application.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.raffleRepo = NewRaffleRepository(tx)
	u.numberClaimRepo = NewNumberClaimRepository(tx)
	u.reservationRepo = NewReservationRepository(tx)
	u.paymentRepo = NewPaymentRepository(tx)
	u.ticketRepo = NewTicketRepository(tx)
	u.statsRepo = NewStatsRepository(tx)
	u.gatewayEventRepo = NewGatewayEventRepository(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	u.tx = nil
	if err != nil {
		if u.transactionalPublisher != nil {
			u.transactionalPublisher.Discard()
		}
		return fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}

	// Events are best-effort once the transaction is durable
	if u.transactionalPublisher != nil {
		if err := u.transactionalPublisher.Flush(u.ctx); err != nil {
			log.WithError(err).Warn("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// RaffleRepository returns the raffle repository for this unit of work
func (u *unitOfWork) RaffleRepository() interfaces.RaffleRepository {
	if u.raffleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.raffleRepo
}

// NumberClaimRepository returns the number claim repository for this unit of work
func (u *unitOfWork) NumberClaimRepository() interfaces.NumberClaimRepository {
	if u.numberClaimRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.numberClaimRepo
}

// ReservationRepository returns the reservation repository for this unit of work
func (u *unitOfWork) ReservationRepository() interfaces.ReservationRepository {
	if u.reservationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.reservationRepo
}

// PaymentRepository returns the payment repository for this unit of work
func (u *unitOfWork) PaymentRepository() interfaces.PaymentRepository {
	if u.paymentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.paymentRepo
}

// TicketRepository returns the ticket repository for this unit of work
func (u *unitOfWork) TicketRepository() interfaces.TicketRepository {
	if u.ticketRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ticketRepo
}

// StatsRepository returns the stats repository for this unit of work
func (u *unitOfWork) StatsRepository() interfaces.StatsRepository {
	if u.statsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.statsRepo
}

// GatewayEventRepository returns the gateway event repository for this unit of work
func (u *unitOfWork) GatewayEventRepository() interfaces.GatewayEventRepository {
	if u.gatewayEventRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gatewayEventRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work has no event publisher")
	}
	return u.transactionalPublisher
}
