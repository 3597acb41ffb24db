package repository

import (
	"context"
	"testing"

	"rifei/domain/entities"
	"rifei/domain/events"
	"rifei/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransactionalPublisher struct {
	pending   []events.Event
	flushed   []events.Event
	discarded int
}

func (p *recordingTransactionalPublisher) Publish(event events.Event) error {
	p.pending = append(p.pending, event)
	return nil
}

func (p *recordingTransactionalPublisher) Flush(ctx context.Context) error {
	p.flushed = append(p.flushed, p.pending...)
	p.pending = nil
	return nil
}

func (p *recordingTransactionalPublisher) Discard() {
	p.discarded += len(p.pending)
	p.pending = nil
}

func TestUnitOfWork_CommitAndRollback(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	t.Run("commit persists and flushes events", func(t *testing.T) {
		publisher := &recordingTransactionalPublisher{}
		uow := CreateTestUnitOfWork(testDB.DB, publisher)
		require.NoError(t, uow.Begin(ctx))

		raffle := testutil.CreateTestRaffle(1, 20)
		require.NoError(t, uow.RaffleRepository().Create(ctx, raffle))
		require.NoError(t, uow.EventBus().Publish(events.RaffleActivatedEvent{RaffleID: raffle.ID}))
		require.NoError(t, uow.Commit())

		assert.Len(t, publisher.flushed, 1)
		stored, err := NewRaffleRepository(testDB.DB).GetByID(ctx, raffle.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, entities.RaffleStatusActive, stored.Status)
	})

	t.Run("rollback drops writes and events", func(t *testing.T) {
		publisher := &recordingTransactionalPublisher{}
		uow := CreateTestUnitOfWork(testDB.DB, publisher)
		require.NoError(t, uow.Begin(ctx))

		raffle := testutil.CreateTestRaffle(1, 20)
		require.NoError(t, uow.RaffleRepository().Create(ctx, raffle))
		require.NoError(t, uow.EventBus().Publish(events.RaffleActivatedEvent{RaffleID: raffle.ID}))
		require.NoError(t, uow.Rollback())

		assert.Empty(t, publisher.flushed)
		assert.Equal(t, 1, publisher.discarded)
		stored, err := NewRaffleRepository(testDB.DB).GetByID(ctx, raffle.ID)
		require.NoError(t, err)
		assert.Nil(t, stored)
	})

	t.Run("repositories require Begin", func(t *testing.T) {
		uow := CreateTestUnitOfWork(testDB.DB, nil)
		assert.Panics(t, func() { uow.RaffleRepository() })
	})
}
