package repository_test

import (
	"context"
	"testing"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/repository"
	"referral_contest/internal/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContest(t *testing.T, repo *repository.Repository, winners int) *model.Contest {
	t.Helper()

	contest := &model.Contest{
		Title:       "Spring",
		Description: "Invite friends",
		EndTime:     time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second),
		WinnerCount: winners,
	}
	require.NoError(t, repo.CreateContestWithReset(context.Background(), contest))
	return contest
}

func TestRepository_CreateContestWithReset(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := testDB.Repo
	ctx := context.Background()

	testutil.CreateUser(t, repo, 1, nil)
	setPoints(t, repo, 1, 25)

	contest := newContest(t, repo, 3)
	assert.NotZero(t, contest.ID)
	assert.Equal(t, model.ContestActive, contest.Status)
	assert.False(t, contest.CreatedAt.IsZero())

	user, err := repo.GetUserByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, user.Points)

	stored, err := repo.GetContestByID(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring", stored.Title)
	assert.True(t, contest.EndTime.Equal(stored.EndTime))
	assert.Empty(t, stored.WinnerIDs)
	assert.Nil(t, stored.FinishedAt)

	_, err = repo.GetContestByID(ctx, 404)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRepository_UpdateContest(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := testDB.Repo
	ctx := context.Background()

	contest := newContest(t, repo, 1)
	newEnd := contest.EndTime.Add(24 * time.Hour)

	err := repo.UpdateContest(ctx, contest.ID, []model.ContestStatus{model.ContestActive}, model.ContestPostponed, &newEnd)
	require.NoError(t, err)

	stored, err := repo.GetContestByID(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContestPostponed, stored.Status)
	assert.True(t, newEnd.Equal(stored.EndTime))

	err = repo.UpdateContest(ctx, contest.ID, []model.ContestStatus{model.ContestActive}, model.ContestCancelled, nil)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	err = repo.UpdateContest(ctx, 404, []model.ContestStatus{model.ContestActive}, model.ContestCancelled, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	postponed, err := repo.ListContestsByStatus(ctx, model.ContestPostponed)
	require.NoError(t, err)
	require.Len(t, postponed, 1)
	assert.Equal(t, contest.ID, postponed[0].ID)

	err = repo.DeleteContest(ctx, contest.ID)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)
}

func TestRepository_DeleteContest(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := testDB.Repo
	ctx := context.Background()

	contest := newContest(t, repo, 1)
	require.NoError(t, repo.DeleteContest(ctx, contest.ID))

	_, err := repo.GetContestByID(ctx, contest.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRepository_FinishContest(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := testDB.Repo
	ctx := context.Background()

	first := newContest(t, repo, 1)
	for _, id := range []int64{1, 2, 3} {
		testutil.CreateUser(t, repo, id, nil)
	}
	contest := newContest(t, repo, 2)
	setPoints(t, repo, 1, 5)
	setPoints(t, repo, 2, 15)
	setPoints(t, repo, 3, 10)

	finishedAt := time.Now().UTC().Truncate(time.Second)
	finished, err := repo.FinishContest(ctx, contest.ID, finishedAt)
	require.NoError(t, err)
	assert.Equal(t, model.ContestFinished, finished.Status)
	assert.Equal(t, []int64{2, 3}, finished.WinnerIDs)
	assert.Equal(t, []int64{15, 10}, finished.WinnerPoints)

	setPoints(t, repo, 1, 100)

	again, err := repo.FinishContest(ctx, contest.ID, finishedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, again.WinnerIDs)
	require.NotNil(t, again.FinishedAt)
	assert.True(t, finishedAt.Equal(*again.FinishedAt))

	latest, err := repo.GetLatestContest(ctx)
	require.NoError(t, err)
	assert.Equal(t, contest.ID, latest.ID)
	assert.NotEqual(t, first.ID, latest.ID)

	require.NoError(t, repo.UpdateContest(ctx, first.ID, []model.ContestStatus{model.ContestActive}, model.ContestCancelled, nil))
	_, err = repo.FinishContest(ctx, first.ID, finishedAt)
	assert.ErrorIs(t, err, repository.ErrStatusChanged)
}
