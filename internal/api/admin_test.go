package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/service"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/admin/statistics", testUser, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/statistics", 0, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.admin.AssertNotCalled(t, "Statistics", mock.Anything)
}

func TestAdminRoutes_Commands(t *testing.T) {
	end := time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)
	active := &model.Contest{ID: 4, Title: "Spring", Status: model.ContestActive, EndTime: end, WinnerCount: 2}
	postponed := &model.Contest{ID: 4, Title: "Spring", Status: model.ContestPostponed, EndTime: end.Add(48 * time.Hour), WinnerCount: 2}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		mockSetup      func(m *MockAdminService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "Create contest",
			method: http.MethodPost,
			path:   "/api/v1/admin/contests",
			body:   `{"description":"Invite friends","duration_value":48,"duration_unit":"hours","winner_count":2}`,
			mockSetup: func(m *MockAdminService) {
				m.On("Create", mock.Anything, service.CreateContestRequest{
					Description:   "Invite friends",
					DurationValue: 48,
					DurationUnit:  model.UnitHours,
					WinnerCount:   2,
				}).Return(active, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Create without description",
			method:         http.MethodPost,
			path:           "/api/v1/admin/contests",
			body:           `{"duration_value":48,"duration_unit":"hours","winner_count":2}`,
			mockSetup:      func(m *MockAdminService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Create with an unknown unit",
			method: http.MethodPost,
			path:   "/api/v1/admin/contests",
			body:   `{"description":"x","duration_value":2,"duration_unit":"weeks","winner_count":1}`,
			mockSetup: func(m *MockAdminService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, service.ErrInvalidDurationUnit)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"duration unit must be hours or days"}`,
		},
		{
			name:   "Postpone",
			method: http.MethodPost,
			path:   "/api/v1/admin/contests/4/postpone",
			body:   `{"value":2,"unit":"days"}`,
			mockSetup: func(m *MockAdminService) {
				m.On("Postpone", mock.Anything, int64(4), 2, model.UnitDays).Return(postponed, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Resume a cancelled contest",
			method: http.MethodPost,
			path:   "/api/v1/admin/contests/4/resume",
			mockSetup: func(m *MockAdminService) {
				m.On("Resume", mock.Anything, int64(4)).Return(nil, fmt.Errorf("%w: contest is cancelled", service.ErrInvalidTransition))
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "Cancel",
			method: http.MethodPost,
			path:   "/api/v1/admin/contests/4/cancel",
			mockSetup: func(m *MockAdminService) {
				m.On("Cancel", mock.Anything, int64(4)).Return(&model.Contest{ID: 4, Status: model.ContestCancelled}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Delete",
			method: http.MethodDelete,
			path:   "/api/v1/admin/contests/4",
			mockSetup: func(m *MockAdminService) {
				m.On("Delete", mock.Anything, int64(4)).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:   "Delete a missing contest",
			method: http.MethodDelete,
			path:   "/api/v1/admin/contests/5",
			mockSetup: func(m *MockAdminService) {
				m.On("Delete", mock.Anything, int64(5)).Return(service.ErrContestNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "List postponed",
			method: http.MethodGet,
			path:   "/api/v1/admin/contests?status=postponed",
			mockSetup: func(m *MockAdminService) {
				m.On("ListByStatus", mock.Anything, model.ContestPostponed).Return([]*model.Contest{postponed}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "List an unknown status",
			method:         http.MethodGet,
			path:           "/api/v1/admin/contests?status=archived",
			mockSetup:      func(m *MockAdminService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Notify winners",
			method: http.MethodPost,
			path:   "/api/v1/admin/contests/4/notify-winners",
			mockSetup: func(m *MockAdminService) {
				m.On("NotifyWinners", mock.Anything, int64(4)).Return([]model.Delivery{
					{UserID: 1}, {UserID: 2}, {UserID: 3, Err: errors.New("blocked")},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"sent":2,"failed":1}`,
		},
		{
			name:   "Announce ended",
			method: http.MethodPost,
			path:   "/api/v1/admin/announcements/ended",
			mockSetup: func(m *MockAdminService) {
				m.On("AnnounceEnded", mock.Anything).Return([]model.Delivery{{UserID: 1}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"sent":1,"failed":0}`,
		},
		{
			name:   "Reset points",
			method: http.MethodPost,
			path:   "/api/v1/admin/points/reset",
			mockSetup: func(m *MockAdminService) {
				m.On("ResetPoints", mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:   "Statistics",
			method: http.MethodGet,
			path:   "/api/v1/admin/statistics",
			mockSetup: func(m *MockAdminService) {
				m.On("Statistics", mock.Anything).Return(&model.Statistics{TotalUsers: 6, BannedUsers: 2, TotalPoints: 77, TotalContests: 1}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"total_users":6,"banned_users":2,"total_points":77,"total_contests":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.mockSetup(s.admin)

			w := s.do(tt.method, tt.path, testAdmin, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			s.admin.AssertExpectations(t)
		})
	}
}

func TestAdminRoutes_Finalize(t *testing.T) {
	finishedAt := time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)
	contest := &model.Contest{ID: 4, Title: "Spring", Status: model.ContestFinished, WinnerCount: 2, FinishedAt: &finishedAt}
	winners := []model.Winner{
		{Rank: 1, TelegramID: 2, Username: "bob", FullName: "Bob", Points: 15},
		{Rank: 2, TelegramID: 3, Username: "cy", FullName: "Cy", Points: 10},
	}

	s := newTestServer(t)
	s.admin.On("Finalize", mock.Anything, int64(4)).Return(contest, winners, nil)
	s.admin.On("FinalizeLatest", mock.Anything).Return(nil, nil, service.ErrContestNotFound)

	w := s.do(http.MethodPost, "/api/v1/admin/contests/4/finalize", testAdmin, "")
	require.Equal(t, http.StatusOK, w.Code)

	var out finalizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, model.ContestFinished, out.Contest.Status)
	require.NotNil(t, out.Contest.FinishedAt)
	assert.True(t, finishedAt.Equal(*out.Contest.FinishedAt))
	require.Len(t, out.Winners, 2)
	assert.Equal(t, 15, out.Winners[0].Points)
	assert.Equal(t, "cy", out.Winners[1].Username)

	w = s.do(http.MethodPost, "/api/v1/admin/contests/latest/finalize", testAdmin, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes_CheatLogs(t *testing.T) {
	second := int64(2)
	detected := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	s := newTestServer(t)
	s.admin.On("CheatLogs", mock.Anything, 0).Return([]*model.CheatLog{
		{ID: 2, FirstUserID: 3, Type: model.CheatRejoinAbuse, DetectedAt: detected},
		{ID: 1, FirstUserID: 1, SecondUserID: &second, Type: model.CheatMutualReferral, DetectedAt: detected},
	}, nil)

	w := s.do(http.MethodGet, "/api/v1/admin/cheat-logs", testAdmin, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"id":2,"type":"rejoin_abuse","first_user_id":3,"detected_at":"2025-03-14T09:30:00Z"},
		{"id":1,"type":"mutual_referral","first_user_id":1,"second_user_id":2,"detected_at":"2025-03-14T09:30:00Z"}
	]`, w.Body.String())
}
