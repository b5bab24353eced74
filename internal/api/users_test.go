package api

import (
	"errors"
	"net/http"
	"testing"

	"referral_contest/internal/model"
	"referral_contest/internal/service"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserRoutes_GetProfile(t *testing.T) {
	profile := &model.Profile{
		User:           &model.User{TelegramID: testUser, Username: "ann", FullName: "Ann", Points: 5},
		LeaderScore:    10,
		Percentage:     50,
		NextCompetitor: &model.User{TelegramID: 2, Username: "bob", Points: 10},
		Gap:            5,
	}

	tests := []struct {
		name           string
		path           string
		as             int64
		mockSetup      func(s *testServer)
		expectedStatus int
	}{
		{
			name: "Own profile",
			path: "/api/v1/users/1/profile",
			as:   testUser,
			mockSetup: func(s *testServer) {
				s.users.On("Profile", mock.Anything, testUser).Return(profile, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Admin reads any profile",
			path: "/api/v1/users/1/profile",
			as:   testAdmin,
			mockSetup: func(s *testServer) {
				s.users.On("Profile", mock.Anything, testUser).Return(profile, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Someone else's profile",
			path:           "/api/v1/users/2/profile",
			as:             testUser,
			mockSetup:      func(s *testServer) {},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "Invalid id",
			path:           "/api/v1/users/abc/profile",
			as:             testUser,
			mockSetup:      func(s *testServer) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Unknown user",
			path: "/api/v1/users/1/profile",
			as:   testUser,
			mockSetup: func(s *testServer) {
				s.users.On("Profile", mock.Anything, testUser).Return(nil, service.ErrUserNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Unauthenticated",
			path:           "/api/v1/users/1/profile",
			mockSetup:      func(s *testServer) {},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.mockSetup(s)

			w := s.do(http.MethodGet, tt.path, tt.as, "")

			assert.Equal(t, tt.expectedStatus, w.Code)
			s.users.AssertExpectations(t)

			if tt.expectedStatus != http.StatusOK {
				return
			}
			var out profileResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, 5, out.User.Points)
			assert.Equal(t, 50.0, out.Percentage)
			require.NotNil(t, out.NextCompetitor)
			assert.Equal(t, int64(2), out.NextCompetitor.TelegramID)
			assert.Equal(t, 5, out.Gap)
			assert.Equal(t, "https://t.me/contest_bot?start=1", out.ReferralLink)
		})
	}
}

func TestUserRoutes_GetLeaderboard(t *testing.T) {
	s := newTestServer(t)
	s.users.On("Leaderboard", mock.Anything, 2).Return([]*model.User{
		{TelegramID: 5, Username: "eve", Points: 20},
		{TelegramID: 3, Username: "cy", Points: 10},
	}, nil)
	s.users.On("Leaderboard", mock.Anything, 0).Return(nil, errors.New("db down"))

	w := s.do(http.MethodGet, "/api/v1/leaderboard?limit=2", testUser, "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []struct {
		Rank       int   `json:"rank"`
		TelegramID int64 `json:"telegram_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[0].Rank)
	assert.Equal(t, int64(5), out[0].TelegramID)
	assert.Equal(t, 2, out[1].Rank)

	w = s.do(http.MethodGet, "/api/v1/leaderboard?limit=-1", testUser, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/leaderboard", testUser, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestContestRoutes(t *testing.T) {
	s := newTestServer(t)
	active := &model.Contest{ID: 3, Title: "Spring", Status: model.ContestActive, WinnerCount: 2}
	s.admin.On("Active", mock.Anything).Return([]*model.Contest{active}, nil)
	s.admin.On("Get", mock.Anything, int64(3)).Return(active, nil)
	s.admin.On("Get", mock.Anything, int64(4)).Return(nil, service.ErrContestNotFound)

	w := s.do(http.MethodGet, "/api/v1/contests/active", testUser, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []contestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Spring", list[0].Title)

	w = s.do(http.MethodGet, "/api/v1/contests/3", testUser, "")
	require.Equal(t, http.StatusOK, w.Code)
	var one contestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, model.ContestActive, one.Status)
	assert.Nil(t, one.FinishedAt)

	w = s.do(http.MethodGet, "/api/v1/contests/4", testUser, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
