package application

import (
	"rifei/config"
	"rifei/domain/clock"
	"rifei/domain/interfaces"
	"rifei/domain/services"
)

// domainServices holds the domain services bound to one unit of work
type domainServices struct {
	ledger       interfaces.NumberLedger
	reservations interfaces.ReservationService
	payments     interfaces.PaymentReconciler
	raffles      interfaces.RaffleService
	stats        interfaces.StatsService
}

// newDomainServices wires the domain services onto the repositories of uow.
// uow must have begun.
func newDomainServices(uow UnitOfWork, clk clock.Clock, cfg *config.Config) *domainServices {
	ledger := services.NewNumberLedger(
		uow.RaffleRepository(),
		uow.NumberClaimRepository(),
		clk,
	)
	reservations := services.NewReservationService(
		uow.RaffleRepository(),
		uow.ReservationRepository(),
		ledger,
		uow.EventBus(),
		clk,
		cfg,
	)
	payments := services.NewPaymentReconciler(
		uow.RaffleRepository(),
		uow.ReservationRepository(),
		uow.PaymentRepository(),
		uow.TicketRepository(),
		ledger,
		reservations,
		uow.EventBus(),
		clk,
		cfg,
	)
	raffles := services.NewRaffleService(
		uow.RaffleRepository(),
		uow.TicketRepository(),
		reservations,
		uow.EventBus(),
		clk,
		cfg,
	)
	stats := services.NewStatsService(
		uow.RaffleRepository(),
		uow.PaymentRepository(),
		uow.StatsRepository(),
		clk,
	)

	return &domainServices{
		ledger:       ledger,
		reservations: reservations,
		payments:     payments,
		raffles:      raffles,
		stats:        stats,
	}
}
