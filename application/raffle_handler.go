package application

import (
	"context"

	"rifei/config"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RaffleHandler serves the raffle lifecycle and its statistics
type RaffleHandler struct {
	tx        txRunner
	announcer DrawAnnouncer
}

// NewRaffleHandler creates a new raffle handler. announcer may be nil.
func NewRaffleHandler(uowFactory UnitOfWorkFactory, announcer DrawAnnouncer, clk clock.Clock, cfg *config.Config) *RaffleHandler {
	return &RaffleHandler{
		tx:        newTxRunner(uowFactory, clk, cfg),
		announcer: announcer,
	}
}

// CreateRaffle stores a draft raffle owned by the actor
func (h *RaffleHandler) CreateRaffle(ctx context.Context, actor Actor, params interfaces.CreateRaffleParams) (*entities.Raffle, error) {
	params.CreatorID = actor.UserID

	var raffle *entities.Raffle
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		raffle, err = svc.raffles.Create(ctx, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raffleId":  raffle.ID,
		"creatorId": raffle.CreatorID,
		"total":     raffle.TotalNumbers,
	}).Info("Raffle created")
	return raffle, nil
}

// GetRaffle returns a raffle
func (h *RaffleHandler) GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	var raffle *entities.Raffle
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		raffle, err = svc.raffles.GetByID(ctx, raffleID)
		return err
	})
	return raffle, err
}

// ListRaffles returns a page of raffles matching filter and the total count
func (h *RaffleHandler) ListRaffles(ctx context.Context, filter entities.RaffleFilter) ([]*entities.Raffle, int64, error) {
	var (
		raffles []*entities.Raffle
		total   int64
	)
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		raffles, total, err = svc.raffles.List(ctx, filter)
		return err
	})
	return raffles, total, err
}

// ListEndingSoon returns active raffles closing within days
func (h *RaffleHandler) ListEndingSoon(ctx context.Context, days, limit int) ([]*entities.Raffle, error) {
	var raffles []*entities.Raffle
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		raffles, err = svc.raffles.ListEndingSoon(ctx, days, limit)
		return err
	})
	return raffles, err
}

// UpdateRaffle edits a draft raffle for its creator or an admin
func (h *RaffleHandler) UpdateRaffle(ctx context.Context, actor Actor, raffleID int64, params interfaces.UpdateRaffleParams) (*entities.Raffle, error) {
	var raffle *entities.Raffle
	err := h.tx.inTxWithRetry(ctx, "update_raffle", func(uow UnitOfWork, svc *domainServices) error {
		if err := authorizeManage(ctx, svc, actor, raffleID); err != nil {
			return err
		}
		var err error
		raffle, err = svc.raffles.Update(ctx, raffleID, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raffleId": raffle.ID,
		"actorId":  actor.UserID,
	}).Info("Raffle updated")
	return raffle, nil
}

// DeleteRaffle removes an unsold draft raffle for its creator or an admin
func (h *RaffleHandler) DeleteRaffle(ctx context.Context, actor Actor, raffleID int64) error {
	return h.tx.inTxWithRetry(ctx, "delete_raffle", func(uow UnitOfWork, svc *domainServices) error {
		if err := authorizeManage(ctx, svc, actor, raffleID); err != nil {
			return err
		}
		return svc.raffles.Delete(ctx, raffleID)
	})
}

// ActivateRaffle opens a draft raffle for sales
func (h *RaffleHandler) ActivateRaffle(ctx context.Context, actor Actor, raffleID int64) (*entities.Raffle, error) {
	var raffle *entities.Raffle
	err := h.tx.inTxWithRetry(ctx, "activate_raffle", func(uow UnitOfWork, svc *domainServices) error {
		if err := authorizeManage(ctx, svc, actor, raffleID); err != nil {
			return err
		}
		var err error
		raffle, err = svc.raffles.Activate(ctx, raffleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raffleId": raffle.ID,
		"endDate":  raffle.EndDate,
	}).Info("Raffle activated")
	return raffle, nil
}

// CancelRaffle calls off a draft or active raffle
func (h *RaffleHandler) CancelRaffle(ctx context.Context, actor Actor, raffleID int64) (*entities.Raffle, error) {
	var raffle *entities.Raffle
	err := h.tx.inTxWithRetry(ctx, "cancel_raffle", func(uow UnitOfWork, svc *domainServices) error {
		if err := authorizeManage(ctx, svc, actor, raffleID); err != nil {
			return err
		}
		var err error
		raffle, err = svc.raffles.Cancel(ctx, raffleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"raffleId":  raffle.ID,
		"soldCount": raffle.SoldCount,
		"actorId":   actor.UserID,
	}).Info("Raffle cancelled")
	return raffle, nil
}

// DrawRaffle draws a winner on demand once the raffle is due
func (h *RaffleHandler) DrawRaffle(ctx context.Context, actor Actor, raffleID int64) (*interfaces.RaffleDrawResult, error) {
	var result *interfaces.RaffleDrawResult
	err := h.tx.inTxWithRetry(ctx, "draw_raffle", func(uow UnitOfWork, svc *domainServices) error {
		if err := authorizeManage(ctx, svc, actor, raffleID); err != nil {
			return err
		}
		var err error
		result, err = svc.raffles.Draw(ctx, raffleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logDraw(result)
	announce(ctx, h.announcer, result)
	return result, nil
}

// GetRaffleStats summarizes a raffle's sales
func (h *RaffleHandler) GetRaffleStats(ctx context.Context, raffleID int64) (*entities.RaffleStats, error) {
	var stats *entities.RaffleStats
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		stats, err = svc.stats.GetRaffleStats(ctx, raffleID)
		return err
	})
	return stats, err
}

// VerifyDraw replays a completed raffle's draw from its published proof
func (h *RaffleHandler) VerifyDraw(ctx context.Context, raffleID int64) (*interfaces.DrawVerification, error) {
	var verification *interfaces.DrawVerification
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		verification, err = svc.raffles.VerifyDraw(ctx, raffleID)
		return err
	})
	return verification, err
}

// GetMarketplaceStats aggregates every raffle on the platform
func (h *RaffleHandler) GetMarketplaceStats(ctx context.Context) (*entities.MarketplaceStats, error) {
	var stats *entities.MarketplaceStats
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		stats, err = svc.stats.GetMarketplaceStats(ctx)
		return err
	})
	return stats, err
}

// GetRafflePayments lists a raffle's payments for its creator or an admin
func (h *RaffleHandler) GetRafflePayments(ctx context.Context, actor Actor, raffleID int64, status *entities.PaymentStatus) ([]*entities.Payment, *entities.PaymentStats, error) {
	var (
		payments []*entities.Payment
		stats    *entities.PaymentStats
	)
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		if err := authorizeManage(ctx, svc, actor, raffleID); err != nil {
			return err
		}
		var err error
		payments, err = svc.stats.GetRafflePayments(ctx, raffleID, status)
		if err != nil {
			return err
		}
		stats, err = svc.stats.GetPaymentStats(ctx, entities.PaymentFilter{RaffleID: &raffleID})
		return err
	})
	return payments, stats, err
}

func authorizeManage(ctx context.Context, svc *domainServices, actor Actor, raffleID int64) error {
	raffle, err := svc.raffles.GetByID(ctx, raffleID)
	if err != nil {
		return err
	}
	if !actor.CanManage(raffle.CreatorID) {
		return ErrForbidden
	}
	return nil
}

func logDraw(result *interfaces.RaffleDrawResult) {
	log.WithFields(log.Fields{
		"raffleId":     result.Raffle.ID,
		"winnerNumber": result.WinnerTicket.Number,
		"winnerId":     result.WinnerTicket.UserID,
		"ticketCount":  result.TicketCount,
	}).Info("Raffle drawn")
}

// announce posts a draw outside the transaction; failures do not undo the draw
func announce(ctx context.Context, announcer DrawAnnouncer, result *interfaces.RaffleDrawResult) {
	if announcer == nil {
		return
	}
	if err := announcer.AnnounceDraw(ctx, result); err != nil {
		log.WithFields(log.Fields{
			"raffleId": result.Raffle.ID,
			"error":    err,
		}).Error("Failed to announce draw")
	}
}
