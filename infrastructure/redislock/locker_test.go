package redislock

import (
	"context"
	"testing"
	"time"

	"rifei/application"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := Open(ctx, "redis://"+endpoint)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestLocker_Acquire(t *testing.T) {
	client := setupRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "payment:1", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "payment:1", time.Minute)
	assert.ErrorIs(t, err, application.ErrLockHeld)

	// Other keys are independent
	releaseOther, err := locker.Acquire(ctx, "payment:2", time.Minute)
	require.NoError(t, err)
	releaseOther()

	release()

	release, err = locker.Acquire(ctx, "payment:1", time.Minute)
	require.NoError(t, err)
	release()
}

func TestLocker_ReleaseKeepsForeignLock(t *testing.T) {
	client := setupRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "payment:9", 50*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return client.Exists(ctx, keyPrefix+"payment:9").Val() == 0
	}, 5*time.Second, 20*time.Millisecond)

	release, err := locker.Acquire(ctx, "payment:9", time.Minute)
	require.NoError(t, err)
	defer release()

	// The expired holder must not remove the new holder's lock
	staleRelease()

	_, err = locker.Acquire(ctx, "payment:9", time.Minute)
	assert.ErrorIs(t, err, application.ErrLockHeld)
}

func TestOpen_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "not-a-url://")
	assert.Error(t, err)
}
