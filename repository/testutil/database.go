package testutil

import (
	"context"
	"testing"
	"time"

	"rifei/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const (
	postgresImage   = "postgres:16-alpine"
	testPoolSize    = 50
	teardownTimeout = 30 * time.Second
)

// TestDatabase is a migrated PostgreSQL container owned by one test
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *database.DB
	URL       string
}

// SetupTestDatabase starts a PostgreSQL container, applies every migration and opens a
// pool sized for concurrent claim tests. Teardown is registered on t.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("rifei_test"),
		postgres.WithUsername("rifei"),
		postgres.WithPassword("rifei"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"app":       "rifei",
			"test-name": t.Name(),
		}),
	)
	require.NoError(t, err)

	td := &TestDatabase{Container: container}
	t.Cleanup(td.teardown(t))

	td.URL, err = container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.MigrateUp(td.URL), "migrations must apply on a fresh database")

	td.DB, err = database.NewConnection(ctx, td.URL, testPoolSize)
	require.NoError(t, err)

	return td
}

func (td *TestDatabase) teardown(t *testing.T) func() {
	return func() {
		if td.DB != nil {
			td.DB.Close()
		}

		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := td.Container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}
}
