package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"rifei/domain/entities"
	"rifei/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayEventRepository_RecordAndDedupe(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	repo := NewGatewayEventRepository(testDB.DB)

	event := &entities.GatewayEvent{
		Provider:       "mercadopago",
		DeliveryKey:    "req-1",
		EventType:      "payment",
		Action:         "payment.updated",
		DataID:         "123",
		Payload:        []byte(`{"type":"payment","data":{"id":"123"}}`),
		SignatureValid: true,
		ReceivedAt:     now,
	}

	stored, err := repo.Record(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
	assert.False(t, stored.IsSettled())

	t.Run("failed processing stays unsettled", func(t *testing.T) {
		require.NoError(t, repo.MarkProcessed(ctx, stored.ID, "error", errors.New("gateway timeout"), now))

		again, err := repo.Record(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, again.ID)
		assert.Equal(t, 2, again.Attempts)
		assert.False(t, again.IsSettled())
	})

	t.Run("successful processing settles the delivery", func(t *testing.T) {
		require.NoError(t, repo.MarkProcessed(ctx, stored.ID, string(entities.OutcomeApplied), nil, now))

		again, err := repo.Record(ctx, event)
		require.NoError(t, err)
		assert.True(t, again.IsSettled())
		assert.Equal(t, string(entities.OutcomeApplied), *again.Outcome)
	})
}

func TestGatewayEventRepository_RecordEmptyPayload(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	repo := NewGatewayEventRepository(testDB.DB)

	for i, payload := range [][]byte{nil, {}} {
		stored, err := repo.Record(context.Background(), &entities.GatewayEvent{
			Provider:    "mercadopago",
			DeliveryKey: fmt.Sprintf("empty-%d", i),
			EventType:   "payment",
			DataID:      "555",
			Payload:     payload,
			ReceivedAt:  time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(stored.Payload))
	}
}

func TestJSONPayload(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{}", string(jsonPayload(nil)))
	assert.Equal(t, "{}", string(jsonPayload([]byte{})))
	assert.Equal(t, `{"a":1}`, string(jsonPayload([]byte(`{"a":1}`))))
}
