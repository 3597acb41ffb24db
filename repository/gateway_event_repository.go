package repository

import (
	"context"
	"fmt"
	"time"

	"rifei/domain/entities"
)

// GatewayEventRepository implements webhook delivery records
type GatewayEventRepository struct {
	q Queryable
}

// NewGatewayEventRepository creates a new gateway event repository
func NewGatewayEventRepository(q Queryable) *GatewayEventRepository {
	return &GatewayEventRepository{q: q}
}

// Record stores a delivery. A redelivery of a known (provider, delivery_key) bumps its
// attempt count and returns the stored row, including any earlier outcome.
func (r *GatewayEventRepository) Record(ctx context.Context, event *entities.GatewayEvent) (*entities.GatewayEvent, error) {
	query := `
		INSERT INTO gateway_events (provider, delivery_key, event_type, action, data_id, payload, signature_valid, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, delivery_key) DO UPDATE
		SET attempts = gateway_events.attempts + 1,
		    signature_valid = gateway_events.signature_valid OR EXCLUDED.signature_valid
		RETURNING id, provider, delivery_key, event_type, action, data_id, payload, signature_valid,
		          outcome, processing_error, attempts, received_at, processed_at
	`

	var stored entities.GatewayEvent
	err := r.q.QueryRow(ctx, query,
		event.Provider,
		event.DeliveryKey,
		event.EventType,
		event.Action,
		event.DataID,
		jsonPayload(event.Payload),
		event.SignatureValid,
		event.ReceivedAt,
	).Scan(
		&stored.ID,
		&stored.Provider,
		&stored.DeliveryKey,
		&stored.EventType,
		&stored.Action,
		&stored.DataID,
		&stored.Payload,
		&stored.SignatureValid,
		&stored.Outcome,
		&stored.ProcessingError,
		&stored.Attempts,
		&stored.ReceivedAt,
		&stored.ProcessedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record gateway event %s/%s: %w", event.Provider, event.DeliveryKey, translateError(err))
	}

	return &stored, nil
}

// MarkProcessed stores the outcome of processing a delivery. A non-nil processingErr
// leaves the delivery eligible for reprocessing on redelivery.
func (r *GatewayEventRepository) MarkProcessed(ctx context.Context, id int64, outcome string, processingErr error, now time.Time) error {
	var errText *string
	if processingErr != nil {
		msg := processingErr.Error()
		errText = &msg
	}

	query := `
		UPDATE gateway_events
		SET outcome = $2,
		    processing_error = $3,
		    processed_at = $4
		WHERE id = $1
	`

	if _, err := r.q.Exec(ctx, query, id, outcome, errText, now); err != nil {
		return fmt.Errorf("failed to mark gateway event %d processed: %w", id, err)
	}

	return nil
}

// jsonPayload keeps an empty body from reaching the NOT NULL payload column as NULL
func jsonPayload(payload []byte) []byte {
	if len(payload) == 0 {
		return []byte("{}")
	}
	return payload
}
