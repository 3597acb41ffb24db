package application

import (
	"context"
	"fmt"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CheckoutParams describes how the buyer wants to pay
type CheckoutParams struct {
	ReservationID uuid.UUID
	Method        entities.PaymentMethod
	PayerEmail    string
}

// CheckoutHandler opens gateway checkouts for reservations
type CheckoutHandler struct {
	tx      txRunner
	gateway interfaces.PaymentGateway
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(uowFactory UnitOfWorkFactory, gateway interfaces.PaymentGateway, clk clock.Clock, cfg *config.Config) *CheckoutHandler {
	return &CheckoutHandler{
		tx:      newTxRunner(uowFactory, clk, cfg),
		gateway: gateway,
	}
}

// Checkout creates (or reuses) the pending payment of a reservation and opens a
// checkout for it. The gateway call happens between two short transactions.
func (h *CheckoutHandler) Checkout(ctx context.Context, actor Actor, params CheckoutParams) (*entities.Payment, error) {
	var (
		payment     *entities.Payment
		created     bool
		raffle      *entities.Raffle
		reservation *entities.Reservation
	)

	err := h.tx.inTxWithRetry(ctx, "create_payment", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		payment, created, err = svc.payments.CreatePayment(ctx, params.ReservationID, actor.UserID)
		if err != nil {
			return err
		}

		reservation, err = uow.ReservationRepository().GetByID(ctx, payment.ReservationID)
		if err != nil {
			return fmt.Errorf("failed to get reservation: %w", err)
		}
		raffle, err = uow.RaffleRepository().GetByID(ctx, payment.RaffleID)
		if err != nil {
			return fmt.Errorf("failed to get raffle: %w", err)
		}
		if raffle == nil {
			return domain.ErrRaffleNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !created && hasCheckout(payment) {
		return payment, nil
	}

	session, err := h.gateway.CreateCheckout(ctx, entities.CheckoutRequest{
		Payment:     payment,
		Raffle:      raffle,
		Reservation: reservation,
		Method:      params.Method,
		PayerEmail:  params.PayerEmail,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"paymentId": payment.ID,
			"error":     err,
		}).Error("Failed to open gateway checkout")
		return nil, fmt.Errorf("failed to open checkout: %w", err)
	}

	err = h.tx.inTxWithRetry(ctx, "attach_checkout", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		payment, err = svc.payments.AttachCheckout(ctx, payment.ID, session)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"paymentId":     payment.ID,
		"reservationId": payment.ReservationID,
		"method":        params.Method,
	}).Info("Checkout opened")

	return payment, nil
}

func hasCheckout(p *entities.Payment) bool {
	return p.CheckoutURL != nil || p.PixQRCode != nil
}
