package services

import (
	"context"
	"errors"
	"fmt"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/events"
	"rifei/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type paymentReconciler struct {
	raffleRepo      interfaces.RaffleRepository
	reservationRepo interfaces.ReservationRepository
	paymentRepo     interfaces.PaymentRepository
	ticketRepo      interfaces.TicketRepository
	ledger          interfaces.NumberLedger
	reservations    interfaces.ReservationService
	eventPublisher  interfaces.EventPublisher
	clock           clock.Clock
	config          *config.Config
}

// NewPaymentReconciler creates a new payment reconciler
func NewPaymentReconciler(
	raffleRepo interfaces.RaffleRepository,
	reservationRepo interfaces.ReservationRepository,
	paymentRepo interfaces.PaymentRepository,
	ticketRepo interfaces.TicketRepository,
	ledger interfaces.NumberLedger,
	reservations interfaces.ReservationService,
	eventPublisher interfaces.EventPublisher,
	clk clock.Clock,
	cfg *config.Config,
) interfaces.PaymentReconciler {
	return &paymentReconciler{
		raffleRepo:      raffleRepo,
		reservationRepo: reservationRepo,
		paymentRepo:     paymentRepo,
		ticketRepo:      ticketRepo,
		ledger:          ledger,
		reservations:    reservations,
		eventPublisher:  eventPublisher,
		clock:           clk,
		config:          cfg,
	}
}

// CreatePayment opens a pending payment for a pending reservation
func (s *paymentReconciler) CreatePayment(ctx context.Context, reservationID uuid.UUID, userID int64) (*entities.Payment, bool, error) {
	reservation, err := s.reservationRepo.GetByIDForUpdate(ctx, reservationID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil {
		return nil, false, domain.ErrReservationNotFound
	}
	if reservation.UserID != userID {
		return nil, false, domain.ErrReservationNotOwned
	}

	now := s.clock.Now()
	switch reservation.Status {
	case entities.ReservationStatusConfirmed:
		return nil, false, domain.ErrAlreadyConfirmed
	case entities.ReservationStatusCancelled:
		return nil, false, domain.ErrReservationCancelled
	}
	if reservation.IsExpiredAt(now) {
		return nil, false, domain.ErrAlreadyExpired
	}

	existing, err := s.paymentRepo.GetPendingByReservation(ctx, reservation.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get pending payment: %w", err)
	}
	if existing != nil {
		if !existing.IsExpiredAt(now) {
			return existing, false, nil
		}
		// A lapsed checkout makes room for a new one
		existing.Status = entities.PaymentStatusCancelled
		existing.StatusDetail = entities.StatusDetailExpired
		if err := s.paymentRepo.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to cancel lapsed payment: %w", err)
		}
		s.publishClosed(existing, false)
	}

	fee, net := entities.CalculateFee(reservation.TotalAmount, s.config.PlatformFeeRate)
	payment := &entities.Payment{
		ReservationID: reservation.ID,
		RaffleID:      reservation.RaffleID,
		UserID:        reservation.UserID,
		Amount:        reservation.TotalAmount,
		Fee:           fee,
		NetAmount:     net,
		Status:        entities.PaymentStatusPending,
		ExpiresAt:     now.Add(s.config.PaymentTTL),
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, false, fmt.Errorf("failed to create payment: %w", err)
	}

	if err := s.eventPublisher.Publish(events.PaymentCreatedEvent{
		PaymentID:     payment.ID,
		ReservationID: payment.ReservationID,
		RaffleID:      payment.RaffleID,
		UserID:        payment.UserID,
		Amount:        payment.Amount,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish payment created event")
	}

	return payment, true, nil
}

// AttachCheckout stores the gateway checkout details on a payment
func (s *paymentReconciler) AttachCheckout(ctx context.Context, paymentID int64, session *entities.CheckoutSession) (*entities.Payment, error) {
	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}

	payment.PreferenceID = optionalString(session.PreferenceID, payment.PreferenceID)
	payment.CheckoutURL = optionalString(session.CheckoutURL, payment.CheckoutURL)
	payment.PixQRCode = optionalString(session.PixQRCode, payment.PixQRCode)
	payment.PixQRCodeBase64 = optionalString(session.PixQRCodeBase64, payment.PixQRCodeBase64)
	payment.PixTicketURL = optionalString(session.PixTicketURL, payment.PixTicketURL)
	if payment.ExternalPaymentID == nil {
		payment.ExternalPaymentID = optionalString(session.ExternalPaymentID, nil)
	}

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to attach checkout: %w", err)
	}

	return payment, nil
}

func optionalString(value string, fallback *string) *string {
	if value == "" {
		return fallback
	}
	return &value
}

// ApplyGatewayEvent settles a gateway notification against the local payment.
// Replaying an event is harmless: terminal payments never change state again.
func (s *paymentReconciler) ApplyGatewayEvent(ctx context.Context, event entities.PaymentEvent) (*entities.ApplyResult, error) {
	if event.Type != entities.GatewayEventTypePayment {
		return ignored(entities.IgnoreReasonNotPayment, nil), nil
	}
	gatewayPayment := event.Payment
	if gatewayPayment == nil {
		return &entities.ApplyResult{Outcome: entities.OutcomeUnknownReference}, nil
	}

	target, terminal := gatewayPayment.Status.TargetStatus()
	if !terminal {
		return ignored(entities.IgnoreReasonNonTerminal, nil), nil
	}

	paymentID, err := entities.ParseExternalReference(gatewayPayment.ExternalReference)
	if err != nil {
		return &entities.ApplyResult{Outcome: entities.OutcomeUnknownReference}, nil
	}

	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return &entities.ApplyResult{Outcome: entities.OutcomeUnknownReference}, nil
	}
	if payment.ExternalPaymentID != nil && *payment.ExternalPaymentID != gatewayPayment.ID {
		log.WithFields(log.Fields{
			"paymentId":         payment.ID,
			"externalPaymentId": *payment.ExternalPaymentID,
			"gatewayPaymentId":  gatewayPayment.ID,
		}).Warn("Gateway payment does not match recorded external payment id")
		if target == entities.PaymentStatusApproved {
			s.flagRefund(payment, gatewayPayment, entities.StatusDetailDuplicateCapture)
		}
		return &entities.ApplyResult{Outcome: entities.OutcomeUnknownReference, Reason: refundReason(target)}, nil
	}

	if payment.IsTerminal() {
		if payment.Status == target {
			return ignored(entities.IgnoreReasonDuplicate, payment), nil
		}
		log.WithFields(log.Fields{
			"paymentId":     payment.ID,
			"localStatus":   payment.Status,
			"gatewayStatus": gatewayPayment.Status,
		}).Warn("Gateway reports a different terminal status for a settled payment")
		// Money captured for a payment that closed without granting numbers
		if target == entities.PaymentStatusApproved && payment.Status != entities.PaymentStatusRefunded {
			s.flagRefund(payment, gatewayPayment, entities.StatusDetailClosedPayment)
		}
		return ignored(entities.IgnoreReasonTerminalConflict, payment), nil
	}

	if target == entities.PaymentStatusRefunded {
		return ignored(entities.IgnoreReasonReversalPending, payment), nil
	}

	gatewayID := gatewayPayment.ID
	payment.ExternalPaymentID = &gatewayID
	if method := gatewayPayment.Method(); method != nil {
		payment.Method = method
	}

	switch target {
	case entities.PaymentStatusApproved:
		err = s.approve(ctx, payment, gatewayPayment)
	default:
		err = s.close(ctx, payment, target, gatewayPayment.StatusDetail)
	}
	if err != nil {
		return nil, err
	}

	return &entities.ApplyResult{Outcome: entities.OutcomeApplied, Payment: payment}, nil
}

func ignored(reason string, payment *entities.Payment) *entities.ApplyResult {
	return &entities.ApplyResult{Outcome: entities.OutcomeIgnored, Reason: reason, Payment: payment}
}

func (s *paymentReconciler) approve(ctx context.Context, payment *entities.Payment, gatewayPayment *entities.GatewayPayment) error {
	now := s.clock.Now()

	// Money that arrives after the checkout window closed is not honoured
	if payment.IsExpiredAt(now) {
		return s.rejectCaptured(ctx, payment, gatewayPayment, entities.StatusDetailExpired)
	}
	if !gatewayPayment.TransactionAmount.Equal(payment.Amount) {
		log.WithFields(log.Fields{
			"paymentId": payment.ID,
			"expected":  payment.Amount.String(),
			"captured":  gatewayPayment.TransactionAmount.String(),
		}).Warn("Gateway captured an amount different from the payment")
		return s.rejectCaptured(ctx, payment, gatewayPayment, entities.StatusDetailAmountMismatch)
	}

	// Lock order: payment, raffle, reservation
	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, payment.RaffleID)
	if err != nil {
		return fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return domain.ErrRaffleNotFound
	}

	reservation, err := s.reservations.Confirm(ctx, payment.ReservationID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExpired) || errors.Is(err, domain.ErrReservationCancelled) {
			return s.rejectCaptured(ctx, payment, gatewayPayment, entities.StatusDetailReservationExpired)
		}
		return fmt.Errorf("failed to confirm reservation: %w", err)
	}

	paidAt := now
	if gatewayPayment.DateApproved != nil {
		paidAt = *gatewayPayment.DateApproved
	}
	payment.Status = entities.PaymentStatusApproved
	payment.StatusDetail = gatewayPayment.StatusDetail
	payment.PaidAt = &paidAt

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to approve payment: %w", err)
	}

	tickets := make([]*entities.Ticket, 0, len(reservation.Numbers))
	for _, number := range reservation.Numbers {
		tickets = append(tickets, &entities.Ticket{
			RaffleID:  payment.RaffleID,
			Number:    number,
			UserID:    payment.UserID,
			PaymentID: payment.ID,
		})
	}
	if err := s.ticketRepo.CreateBatch(ctx, tickets); err != nil {
		return fmt.Errorf("failed to create tickets: %w", err)
	}

	soldCount, err := s.raffleRepo.AdjustSoldCount(ctx, raffle.ID, int64(len(tickets)))
	if err != nil {
		return fmt.Errorf("failed to update sold count: %w", err)
	}

	log.WithFields(log.Fields{
		"paymentId": payment.ID,
		"raffleId":  raffle.ID,
		"userId":    payment.UserID,
		"numbers":   len(tickets),
		"soldCount": soldCount,
	}).Info("Payment approved")

	if err := s.eventPublisher.Publish(events.PaymentApprovedEvent{
		PaymentID:     payment.ID,
		ReservationID: payment.ReservationID,
		RaffleID:      payment.RaffleID,
		UserID:        payment.UserID,
		Numbers:       reservation.Numbers,
		Amount:        payment.Amount,
		NetAmount:     payment.NetAmount,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish payment approved event")
	}

	return nil
}

// rejectCaptured rejects a payment the gateway already captured. The numbers are
// released and the money must be returned by an operator.
func (s *paymentReconciler) rejectCaptured(ctx context.Context, payment *entities.Payment, gatewayPayment *entities.GatewayPayment, detail string) error {
	payment.Status = entities.PaymentStatusRejected
	payment.StatusDetail = detail

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to reject payment: %w", err)
	}
	if _, err := s.reservations.Release(ctx, payment.ReservationID, "payment_"+detail); err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}

	s.publishClosed(payment, true)
	s.flagRefund(payment, gatewayPayment, detail)
	return nil
}

// flagRefund reports money the gateway captured that granted no numbers. Local state
// is left alone; an operator refunds through the gateway.
func (s *paymentReconciler) flagRefund(payment *entities.Payment, gatewayPayment *entities.GatewayPayment, reason string) {
	log.WithFields(log.Fields{
		"paymentId":         payment.ID,
		"externalPaymentId": gatewayPayment.ID,
		"amount":            gatewayPayment.TransactionAmount.String(),
		"reason":            reason,
	}).Warn("Captured payment requires refund")

	if err := s.eventPublisher.Publish(events.PaymentRequiresRefundEvent{
		PaymentID:         payment.ID,
		ExternalPaymentID: gatewayPayment.ID,
		RaffleID:          payment.RaffleID,
		UserID:            payment.UserID,
		Amount:            gatewayPayment.TransactionAmount,
		Reason:            reason,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish payment requires refund event")
	}
}

func refundReason(target entities.PaymentStatus) string {
	if target == entities.PaymentStatusApproved {
		return entities.IgnoreReasonRefundRequired
	}
	return ""
}

func (s *paymentReconciler) close(ctx context.Context, payment *entities.Payment, status entities.PaymentStatus, detail string) error {
	payment.Status = status
	payment.StatusDetail = detail

	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to close payment: %w", err)
	}
	if _, err := s.reservations.Release(ctx, payment.ReservationID, "payment_"+string(status)); err != nil {
		return fmt.Errorf("failed to release reservation: %w", err)
	}

	s.publishClosed(payment, status == entities.PaymentStatusRejected)
	return nil
}

// Refund reverses an approved payment: tickets are deleted and the numbers return to the pool.
// The gateway refund must already have succeeded.
func (s *paymentReconciler) Refund(ctx context.Context, paymentID int64) (*entities.Payment, error) {
	payment, err := s.paymentRepo.GetByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}

	switch payment.Status {
	case entities.PaymentStatusRefunded:
		return payment, nil
	case entities.PaymentStatusApproved:
	default:
		return nil, domain.ErrNotApproved
	}

	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, payment.RaffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, domain.ErrRaffleNotFound
	}
	if raffle.Status == entities.RaffleStatusCompleted {
		return nil, fmt.Errorf("raffle %d already drawn: %w", raffle.ID, domain.ErrInvalidTransition)
	}

	reservation, err := s.reservationRepo.GetByID(ctx, payment.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	deleted, err := s.ticketRepo.DeleteByPayment(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete tickets: %w", err)
	}
	if err := s.ledger.Release(ctx, payment.ReservationID); err != nil {
		return nil, err
	}
	if _, err := s.raffleRepo.AdjustSoldCount(ctx, raffle.ID, -deleted); err != nil {
		return nil, fmt.Errorf("failed to update sold count: %w", err)
	}

	now := s.clock.Now()
	payment.Status = entities.PaymentStatusRefunded
	payment.RefundedAt = &now
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to refund payment: %w", err)
	}

	var numbers []int64
	if reservation != nil {
		numbers = reservation.Numbers
	}
	if err := s.eventPublisher.Publish(events.PaymentRefundedEvent{
		PaymentID: payment.ID,
		RaffleID:  payment.RaffleID,
		UserID:    payment.UserID,
		Numbers:   numbers,
		Amount:    payment.Amount,
	}); err != nil {
		log.WithError(err).Warn("Failed to publish payment refunded event")
	}

	return payment, nil
}

// ExpirePending cancels pending payments past their expiry and releases reservations still held for them
func (s *paymentReconciler) ExpirePending(ctx context.Context, limit int) (int, error) {
	expired, err := s.paymentRepo.ExpirePending(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("failed to expire payments: %w", err)
	}

	for _, payment := range expired {
		if _, err := s.reservations.Release(ctx, payment.ReservationID, "payment_expired"); err != nil {
			return 0, fmt.Errorf("failed to release reservation: %w", err)
		}
		s.publishClosed(payment, false)
	}

	return len(expired), nil
}

// GetByID returns a payment
func (s *paymentReconciler) GetByID(ctx context.Context, paymentID int64) (*entities.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *paymentReconciler) publishClosed(payment *entities.Payment, rejected bool) {
	if err := s.eventPublisher.Publish(events.PaymentClosedEvent{
		PaymentID:     payment.ID,
		ReservationID: payment.ReservationID,
		RaffleID:      payment.RaffleID,
		UserID:        payment.UserID,
		Rejected:      rejected,
		StatusDetail:  payment.StatusDetail,
	}); err != nil {
		log.WithError(err).WithField("paymentId", payment.ID).Warn("Failed to publish payment closed event")
	}
}
