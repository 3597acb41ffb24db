package application

import (
	"context"
	"errors"
	"fmt"

	"rifei/config"
	"rifei/domain"
	"rifei/domain/clock"
	"rifei/domain/entities"
	"rifei/domain/interfaces"
	"rifei/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// Webhook outcomes recorded besides the reconciler's own
const (
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeDuplicate        = "duplicate"
	OutcomeFailed           = "failed"
)

// WebhookDelivery is one notification received from the gateway
type WebhookDelivery struct {
	Provider    string
	DeliveryKey string
	Type        string
	Action      string
	DataID      string
	Payload     []byte
	Signature   string
	RequestID   string
}

// WebhookResult reports how a delivery was handled
type WebhookResult struct {
	Outcome string
	Reason  string
}

// WebhookHandler turns gateway notifications into payment settlements
type WebhookHandler struct {
	tx       txRunner
	gateway  interfaces.PaymentGateway
	verifier SignatureVerifier
	locker   WebhookLocker
	clock    clock.Clock
	config   *config.Config
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	uowFactory UnitOfWorkFactory,
	gateway interfaces.PaymentGateway,
	verifier SignatureVerifier,
	locker WebhookLocker,
	clk clock.Clock,
	cfg *config.Config,
) *WebhookHandler {
	return &WebhookHandler{
		tx:       newTxRunner(uowFactory, clk, cfg),
		gateway:  gateway,
		verifier: verifier,
		locker:   locker,
		clock:    clk,
		config:   cfg,
	}
}

// HandleDelivery verifies, records and applies a webhook delivery.
// Deliveries with a bad signature are recorded and fail with domain.ErrInvalidSignature.
// Any other error means the gateway should deliver again.
func (h *WebhookHandler) HandleDelivery(ctx context.Context, delivery WebhookDelivery) (*WebhookResult, error) {
	sigErr := h.verifier.Verify(delivery.Signature, delivery.RequestID, delivery.DataID)

	record, settled, err := h.record(ctx, delivery, sigErr)
	if err != nil {
		return nil, err
	}
	if settled {
		log.WithFields(log.Fields{
			"deliveryKey": delivery.DeliveryKey,
			"attempts":    record.Attempts,
		}).Debug("Webhook delivery already processed")
		return h.finish(&WebhookResult{Outcome: OutcomeDuplicate, Reason: *record.Outcome}), nil
	}

	if sigErr != nil {
		log.WithFields(log.Fields{
			"deliveryKey": delivery.DeliveryKey,
			"dataId":      delivery.DataID,
		}).Warn("Rejected webhook with invalid signature")
		h.markProcessed(ctx, record.ID, OutcomeInvalidSignature, sigErr)
		observability.GetMetrics().RecordWebhookDelivery(OutcomeInvalidSignature)
		return nil, fmt.Errorf("webhook %s: %w", delivery.DeliveryKey, domain.ErrInvalidSignature)
	}

	if delivery.Type != entities.GatewayEventTypePayment || delivery.DataID == "" {
		result := &WebhookResult{
			Outcome: string(entities.OutcomeIgnored),
			Reason:  entities.IgnoreReasonNotPayment,
		}
		h.markProcessed(ctx, record.ID, result.Outcome, nil)
		return h.finish(result), nil
	}

	result, err := h.applyPayment(ctx, record.ID, delivery)
	if err != nil {
		h.markProcessed(ctx, record.ID, OutcomeFailed, err)
		observability.GetMetrics().RecordWebhookDelivery(OutcomeFailed)
		return nil, err
	}
	return h.finish(result), nil
}

// record stores the delivery and reports whether an earlier attempt already settled it
func (h *WebhookHandler) record(ctx context.Context, delivery WebhookDelivery, sigErr error) (*entities.GatewayEvent, bool, error) {
	var stored *entities.GatewayEvent
	err := h.tx.inTxWithRetry(ctx, "record_webhook", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		stored, err = uow.GatewayEventRepository().Record(ctx, &entities.GatewayEvent{
			Provider:       delivery.Provider,
			DeliveryKey:    delivery.DeliveryKey,
			EventType:      delivery.Type,
			Action:         delivery.Action,
			DataID:         delivery.DataID,
			Payload:        delivery.Payload,
			SignatureValid: sigErr == nil,
			ReceivedAt:     h.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record webhook: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, stored.IsSettled(), nil
}

// applyPayment fetches the gateway's view of the payment and settles it under a per-payment lock
func (h *WebhookHandler) applyPayment(ctx context.Context, recordID int64, delivery WebhookDelivery) (*WebhookResult, error) {
	release, err := h.locker.Acquire(ctx, "webhook:"+delivery.Provider+":payment:"+delivery.DataID, h.config.WebhookLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock payment %s: %w", delivery.DataID, err)
	}
	defer release()

	gatewayPayment, err := h.gateway.GetPayment(ctx, delivery.DataID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownReference) {
			result := &WebhookResult{Outcome: string(entities.OutcomeUnknownReference)}
			h.markProcessed(ctx, recordID, result.Outcome, nil)
			return result, nil
		}
		return nil, fmt.Errorf("failed to fetch gateway payment: %w", err)
	}

	var applied *entities.ApplyResult
	err = h.tx.inTxWithRetry(ctx, "apply_gateway_event", func(uow UnitOfWork, svc *domainServices) error {
		var err error
		applied, err = svc.payments.ApplyGatewayEvent(ctx, entities.PaymentEvent{
			Type:    delivery.Type,
			Action:  delivery.Action,
			Payment: gatewayPayment,
		})
		if err != nil {
			return err
		}
		return uow.GatewayEventRepository().MarkProcessed(ctx, recordID, string(applied.Outcome), nil, h.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	fields := log.Fields{
		"deliveryKey":       delivery.DeliveryKey,
		"externalPaymentId": gatewayPayment.ID,
		"gatewayStatus":     gatewayPayment.Status,
		"outcome":           applied.Outcome,
		"reason":            applied.Reason,
	}
	if applied.Payment != nil {
		fields["paymentId"] = applied.Payment.ID
		fields["paymentStatus"] = applied.Payment.Status
	}
	log.WithFields(fields).Info("Applied gateway event")

	return &WebhookResult{Outcome: string(applied.Outcome), Reason: applied.Reason}, nil
}

func (h *WebhookHandler) markProcessed(ctx context.Context, recordID int64, outcome string, processingErr error) {
	err := h.tx.inTx(ctx, func(uow UnitOfWork, svc *domainServices) error {
		return uow.GatewayEventRepository().MarkProcessed(ctx, recordID, outcome, processingErr, h.clock.Now())
	})
	if err != nil {
		log.WithFields(log.Fields{
			"gatewayEventId": recordID,
			"outcome":        outcome,
			"error":          err,
		}).Error("Failed to store webhook outcome")
	}
}

func (h *WebhookHandler) finish(result *WebhookResult) *WebhookResult {
	observability.GetMetrics().RecordWebhookDelivery(result.Outcome)
	return result
}
