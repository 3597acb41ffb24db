package application

import (
	"context"
	"fmt"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// PaymentHandler serves payment queries and refunds
type PaymentHandler struct {
	tx      txRunner
	gateway interfaces.PaymentGateway
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(uowFactory UnitOfWorkFactory, gateway interfaces.PaymentGateway, clk clock.Clock, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{
		tx:      newTxRunner(uowFactory, clk, cfg),
		gateway: gateway,
	}
}

// GetPayment returns a payment visible to the actor
func (h *PaymentHandler) GetPayment(ctx context.Context, actor Actor, paymentID int64) (*entities.Payment, error) {
	var payment *entities.Payment
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		payment, err = svc.payments.GetByID(ctx, paymentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(payment.UserID) {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// ListMyPayments returns the actor's recent payments
func (h *PaymentHandler) ListMyPayments(ctx context.Context, actor Actor, limit int) ([]*entities.Payment, error) {
	var payments []*entities.Payment
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		payments, err = svc.stats.GetUserPayments(ctx, actor.UserID, limit)
		return err
	})
	return payments, err
}

// GetMyPaymentStats aggregates the actor's payments
func (h *PaymentHandler) GetMyPaymentStats(ctx context.Context, actor Actor) (*entities.PaymentStats, error) {
	var stats *entities.PaymentStats
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		userID := actor.UserID
		stats, err = svc.stats.GetPaymentStats(ctx, entities.PaymentFilter{UserID: &userID})
		return err
	})
	return stats, err
}

// Refund reverses an approved payment at the gateway, then releases its numbers.
// Only admins may refund.
func (h *PaymentHandler) Refund(ctx context.Context, actor Actor, paymentID int64) (*entities.Payment, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	var payment *entities.Payment
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		var err error
		payment, err = svc.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != entities.PaymentStatusApproved {
			return nil
		}

		raffle, err := uow.RaffleRepository().GetByID(ctx, payment.RaffleID)
		if err != nil {
			return fmt.Errorf("failed to get raffle: %w", err)
		}
		if raffle != nil && raffle.Status == entities.RaffleStatusCompleted {
			return fmt.Errorf("raffle %d already drawn: %w", raffle.ID, domain.ErrInvalidTransition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case entities.PaymentStatusRefunded:
		return payment, nil
	case entities.PaymentStatusApproved:
	default:
		return nil, domain.ErrNotApproved
	}
	if payment.ExternalPaymentID == nil {
		return nil, fmt.Errorf("payment %d has no gateway id", payment.ID)
	}

	externalID := *payment.ExternalPaymentID

	if err := h.gateway.Refund(ctx, externalID); err != nil {
		return nil, fmt.Errorf("failed to refund at gateway: %w", err)
	}

	err = h.tx.inTxWithRetry(ctx, "refund_payment", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		payment, err = svc.payments.Refund(ctx, paymentID)
		return err
	})
	if err != nil {
		log.WithFields(log.Fields{
			"paymentId":         paymentID,
			"externalPaymentId": externalID,
			"error":             err,
		}).Error("Gateway refunded but local refund failed")
		return nil, err
	}

	log.WithFields(log.Fields{
		"paymentId": payment.ID,
		"raffleId":  payment.RaffleID,
		"adminId":   actor.UserID,
	}).Info("Payment refunded")

	return payment, nil
}
