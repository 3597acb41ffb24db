package application

import (
	"context"

	"rifei/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and publishes events raised inside it
	Commit() error

	// Rollback rolls back the transaction and drops events raised inside it
	Rollback() error

	// Repository getters
	RaffleRepository() interfaces.RaffleRepository
	NumberClaimRepository() interfaces.NumberClaimRepository
	ReservationRepository() interfaces.ReservationRepository
	PaymentRepository() interfaces.PaymentRepository
	TicketRepository() interfaces.TicketRepository
	StatsRepository() interfaces.StatsRepository
	GatewayEventRepository() interfaces.GatewayEventRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// TransactionalEventPublisher holds events until the surrounding transaction ends
type TransactionalEventPublisher interface {
	interfaces.EventPublisher

	// Flush publishes all held events
	Flush(ctx context.Context) error

	// Discard drops all held events
	Discard()
}
