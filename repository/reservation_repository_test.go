package repository

import (
	"context"
	"testing"
	"time"

	"rifei/domain/entities"
	"rifei/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	raffle := testutil.InsertActiveRaffle(t, testDB.DB, 10)
	repo := NewReservationRepository(testDB.DB)

	reservation := testutil.CreateTestReservation(raffle, 100, []int64{5, 1}, now, 15*time.Minute)
	require.NoError(t, repo.Create(ctx, reservation))

	got, err := repo.GetByID(ctx, reservation.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []int64{5, 1}, got.Numbers)
	assert.True(t, got.TotalAmount.Equal(reservation.TotalAmount))
	assert.Equal(t, entities.ReservationStatusPending, got.Status)

	missing, err := repo.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReservationRepository_ExpireStale(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	raffle := testutil.InsertActiveRaffle(t, testDB.DB, 10)
	repo := NewReservationRepository(testDB.DB)

	stale := testutil.CreateTestReservation(raffle, 100, []int64{1}, now.Add(-time.Hour), 15*time.Minute)
	fresh := testutil.CreateTestReservation(raffle, 200, []int64{2}, now, 15*time.Minute)
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, fresh))

	expired, err := repo.ExpireStale(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.Equal(t, entities.ReservationStatusExpired, expired[0].Status)

	// A second sweep finds nothing: each reservation transitions once
	expired, err = repo.ExpireStale(ctx, now, 100)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestReservationRepository_CancelPendingByRaffle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	raffle := testutil.InsertActiveRaffle(t, testDB.DB, 10)
	repo := NewReservationRepository(testDB.DB)

	pending := testutil.CreateTestReservation(raffle, 100, []int64{1}, now, 15*time.Minute)
	confirmed := testutil.CreateTestReservation(raffle, 200, []int64{2}, now, 15*time.Minute)
	require.NoError(t, repo.Create(ctx, pending))
	require.NoError(t, repo.Create(ctx, confirmed))
	require.NoError(t, repo.UpdateStatus(ctx, confirmed.ID, entities.ReservationStatusConfirmed, now))

	cancelled, err := repo.CancelPendingByRaffle(ctx, raffle.ID, now)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, pending.ID, cancelled[0].ID)

	got, err := repo.GetByID(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ReservationStatusConfirmed, got.Status)
}
