package testutil

import (
	"context"
	"testing"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/repository"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestDatabase is a migrated PostgreSQL container owned by one test.
type TestDatabase struct {
	Container *postgres.PostgresContainer
	Repo      *repository.Repository
	URL       string
}

// SetupTestDatabase starts a PostgreSQL container and applies the migrations.
// The test is skipped under -short.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("referral_contest_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":      "referral-contest-repository",
			"test-name": t.Name(),
			"cleanup":   "auto",
		}),
	)
	require.NoError(t, err)

	testDB := &TestDatabase{Container: container}
	t.Cleanup(func() {
		testDB.cleanup(t)
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := repository.NewWithURL(url)
	require.NoError(t, err)

	require.NoError(t, repo.Migrate())

	testDB.Repo = repo
	testDB.URL = url

	return testDB
}

func (td *TestDatabase) cleanup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if td.Repo != nil {
		if err := td.Repo.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
	}

	if td.Container != nil {
		if err := td.Container.Terminate(ctx); err != nil {
			t.Logf("Warning: failed to terminate test container: %v", err)
		}
	}
}

// CreateUser inserts a user and fails the test on error.
func CreateUser(t *testing.T, repo *repository.Repository, id int64, referredBy *int64) *model.User {
	t.Helper()

	user := &model.User{
		TelegramID: id,
		Username:   "user",
		FullName:   "Test User",
		ReferredBy: referredBy,
	}

	created, err := repo.CreateUser(context.Background(), user)
	require.NoError(t, err)
	require.True(t, created)

	stored, err := repo.GetUserByTelegramID(context.Background(), id)
	require.NoError(t, err)

	return stored
}
