package mocks

import (
	"context"
	"time"

	"referral_contest/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of service.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUsersByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) CompleteVerification(ctx context.Context, telegramID int64, points int) (*model.Verification, error) {
	args := m.Called(ctx, telegramID, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Verification), args.Error(1)
}

func (m *MockUserRepository) ResetAllPoints(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUserRepository) GetMaxPoints(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) GetNextCompetitor(ctx context.Context, telegramID int64, points int) (*model.User, error) {
	args := m.Called(ctx, telegramID, points)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetRecipientIDs(ctx context.Context, exclude []int64) ([]int64, error) {
	args := m.Called(ctx, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockCheatRepository is a mock implementation of service.CheatRepository
type MockCheatRepository struct {
	mock.Mock
}

func (m *MockCheatRepository) IsReferredBy(ctx context.Context, userID, referrerID int64) (bool, error) {
	args := m.Called(ctx, userID, referrerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCheatRepository) BanPair(ctx context.Context, first, second int64, cheat model.CheatType, at time.Time) error {
	args := m.Called(ctx, first, second, cheat, at)
	return args.Error(0)
}

func (m *MockCheatRepository) SaveJoinAttempt(ctx context.Context, telegramID int64, joinCount int, at time.Time) error {
	args := m.Called(ctx, telegramID, joinCount, at)
	return args.Error(0)
}

func (m *MockCheatRepository) BanForRejoinAbuse(ctx context.Context, telegramID int64, joinCount int, at time.Time) error {
	args := m.Called(ctx, telegramID, joinCount, at)
	return args.Error(0)
}

func (m *MockCheatRepository) GetCheatLogs(ctx context.Context, limit int) ([]*model.CheatLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CheatLog), args.Error(1)
}

// MockContestRepository is a mock implementation of service.ContestRepository
type MockContestRepository struct {
	mock.Mock
}

func (m *MockContestRepository) CreateContestWithReset(ctx context.Context, contest *model.Contest) error {
	args := m.Called(ctx, contest)
	return args.Error(0)
}

func (m *MockContestRepository) GetContestByID(ctx context.Context, id int64) (*model.Contest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contest), args.Error(1)
}

func (m *MockContestRepository) GetLatestContest(ctx context.Context) (*model.Contest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contest), args.Error(1)
}

func (m *MockContestRepository) ListContestsByStatus(ctx context.Context, status model.ContestStatus) ([]*model.Contest, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Contest), args.Error(1)
}

func (m *MockContestRepository) UpdateContest(ctx context.Context, id int64, from []model.ContestStatus, status model.ContestStatus, endTime *time.Time) error {
	args := m.Called(ctx, id, from, status, endTime)
	return args.Error(0)
}

func (m *MockContestRepository) DeleteContest(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockContestRepository) FinishContest(ctx context.Context, id int64, at time.Time) (*model.Contest, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contest), args.Error(1)
}

func (m *MockContestRepository) GetStatistics(ctx context.Context) (*model.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Statistics), args.Error(1)
}
