package api

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"referral_contest/internal/middleware"
	"referral_contest/internal/model"
	"referral_contest/internal/service"
	"referral_contest/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

const (
	testAdmin = int64(900)
	testUser  = int64(1)
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Profile(ctx context.Context, userID int64) (*model.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockUserService) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserService) ReferralLink(userID int64) string {
	return "https://t.me/contest_bot?start=" + strconv.FormatInt(userID, 10)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) contest(args mock.Arguments) (*model.Contest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contest), args.Error(1)
}

func (m *MockAdminService) contests(args mock.Arguments) ([]*model.Contest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Contest), args.Error(1)
}

func (m *MockAdminService) deliveries(args mock.Arguments) ([]model.Delivery, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Delivery), args.Error(1)
}

func (m *MockAdminService) finalized(args mock.Arguments) (*model.Contest, []model.Winner, error) {
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Contest), args.Get(1).([]model.Winner), args.Error(2)
}

func (m *MockAdminService) Active(ctx context.Context) ([]*model.Contest, error) {
	return m.contests(m.Called(ctx))
}

func (m *MockAdminService) Get(ctx context.Context, id int64) (*model.Contest, error) {
	return m.contest(m.Called(ctx, id))
}

func (m *MockAdminService) Create(ctx context.Context, req service.CreateContestRequest) (*model.Contest, error) {
	return m.contest(m.Called(ctx, req))
}

func (m *MockAdminService) Postpone(ctx context.Context, id int64, value int, unit model.DurationUnit) (*model.Contest, error) {
	return m.contest(m.Called(ctx, id, value, unit))
}

func (m *MockAdminService) Resume(ctx context.Context, id int64) (*model.Contest, error) {
	return m.contest(m.Called(ctx, id))
}

func (m *MockAdminService) Cancel(ctx context.Context, id int64) (*model.Contest, error) {
	return m.contest(m.Called(ctx, id))
}

func (m *MockAdminService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAdminService) ResetPoints(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAdminService) Finalize(ctx context.Context, id int64) (*model.Contest, []model.Winner, error) {
	return m.finalized(m.Called(ctx, id))
}

func (m *MockAdminService) FinalizeLatest(ctx context.Context) (*model.Contest, []model.Winner, error) {
	return m.finalized(m.Called(ctx))
}

func (m *MockAdminService) NotifyWinners(ctx context.Context, id int64) ([]model.Delivery, error) {
	return m.deliveries(m.Called(ctx, id))
}

func (m *MockAdminService) AnnounceEnded(ctx context.Context) ([]model.Delivery, error) {
	return m.deliveries(m.Called(ctx))
}

func (m *MockAdminService) ListByStatus(ctx context.Context, status model.ContestStatus) ([]*model.Contest, error) {
	return m.contests(m.Called(ctx, status))
}

func (m *MockAdminService) Statistics(ctx context.Context) (*model.Statistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Statistics), args.Error(1)
}

func (m *MockAdminService) CheatLogs(ctx context.Context, limit int) ([]*model.CheatLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.CheatLog), args.Error(1)
}

type testServer struct {
	router *gin.Engine
	users  *MockUserService
	admin  *MockAdminService
	hub    *LiveHub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		router: gin.New(),
		users:  &MockUserService{},
		admin:  &MockAdminService{},
		hub:    NewLiveHub(),
	}
	t.Cleanup(s.hub.Close)

	a := auth.NewTelegramAuth("123:token", true)
	authz := middleware.NewAuthorization([]int64{testAdmin})

	v1 := s.router.Group("/api/v1")
	NewUserRoutes(v1, s.users, a, authz)
	NewContestRoutes(v1, s.admin, a)
	NewAdminRoutes(v1, s.admin, a, authz)
	NewLiveRoutes(v1, s.hub, a)

	return s
}

// authHeader is unsigned init data, accepted because the server runs in
// debug mode.
func authHeader(userID int64) string {
	v := url.Values{}
	v.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	v.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Ann","username":"ann"}`)
	v.Set("hash", "c0ffee")
	return "Telegram " + v.Encode()
}

func (s *testServer) do(method, path string, as int64, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, r)
	if as != 0 {
		req.Header.Set("Authorization", authHeader(as))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

