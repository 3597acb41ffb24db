package repository

import (
	"context"
	"testing"
	"time"

	"rifei/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberClaimRepository_Claim(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	raffle := testutil.InsertActiveRaffle(t, testDB.DB, 10)
	reservationRepo := NewReservationRepository(testDB.DB)
	claimRepo := NewNumberClaimRepository(testDB.DB)

	first := testutil.CreateTestReservation(raffle, 100, []int64{1, 2, 3}, now, 15*time.Minute)
	require.NoError(t, reservationRepo.Create(ctx, first))

	t.Run("claims free numbers", func(t *testing.T) {
		lost, err := claimRepo.Claim(ctx, raffle.ID, first.Numbers, first.ID, first.ExpiresAt, now)
		require.NoError(t, err)
		assert.Empty(t, lost)
	})

	t.Run("overlapping claim loses exactly the taken numbers and writes nothing", func(t *testing.T) {
		second := testutil.CreateTestReservation(raffle, 200, []int64{3, 4, 1}, now, 15*time.Minute)
		require.NoError(t, reservationRepo.Create(ctx, second))

		lost, err := claimRepo.Claim(ctx, raffle.ID, second.Numbers, second.ID, second.ExpiresAt, now)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 1}, lost)

		available, err := claimRepo.GetAvailable(ctx, raffle.ID, raffle.TotalNumbers, now)
		require.NoError(t, err)
		assert.Contains(t, available, int64(4), "partial claim must not persist")
	})

	t.Run("stale hold is taken over", func(t *testing.T) {
		later := first.ExpiresAt.Add(time.Second)
		third := testutil.CreateTestReservation(raffle, 300, []int64{2}, later, 15*time.Minute)
		require.NoError(t, reservationRepo.Create(ctx, third))

		lost, err := claimRepo.Claim(ctx, raffle.ID, third.Numbers, third.ID, third.ExpiresAt, later)
		require.NoError(t, err)
		assert.Empty(t, lost)

		released, err := claimRepo.Release(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), released, "number 2 now belongs to the new reservation")
	})

	t.Run("sold numbers are never taken over", func(t *testing.T) {
		fourth := testutil.CreateTestReservation(raffle, 400, []int64{7}, now, time.Minute)
		require.NoError(t, reservationRepo.Create(ctx, fourth))
		_, err := claimRepo.Claim(ctx, raffle.ID, fourth.Numbers, fourth.ID, fourth.ExpiresAt, now)
		require.NoError(t, err)
		sold, err := claimRepo.MarkSold(ctx, fourth.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), sold)

		farFuture := now.Add(24 * time.Hour)
		fifth := testutil.CreateTestReservation(raffle, 500, []int64{7}, farFuture, time.Minute)
		require.NoError(t, reservationRepo.Create(ctx, fifth))
		lost, err := claimRepo.Claim(ctx, raffle.ID, fifth.Numbers, fifth.ID, fifth.ExpiresAt, farFuture)
		require.NoError(t, err)
		assert.Equal(t, []int64{7}, lost)
	})
}

func TestNumberClaimRepository_GetAvailable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	raffle := testutil.InsertActiveRaffle(t, testDB.DB, 5)
	reservationRepo := NewReservationRepository(testDB.DB)
	claimRepo := NewNumberClaimRepository(testDB.DB)

	held := testutil.CreateTestReservation(raffle, 100, []int64{2, 4}, now, 15*time.Minute)
	require.NoError(t, reservationRepo.Create(ctx, held))
	_, err := claimRepo.Claim(ctx, raffle.ID, held.Numbers, held.ID, held.ExpiresAt, now)
	require.NoError(t, err)

	available, err := claimRepo.GetAvailable(ctx, raffle.ID, raffle.TotalNumbers, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, available)

	// Once the hold lapses the numbers count as available again without any sweep
	available, err = claimRepo.GetAvailable(ctx, raffle.ID, raffle.TotalNumbers, held.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, available)

	count, err := claimRepo.CountHeldByUser(ctx, raffle.ID, 100, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
