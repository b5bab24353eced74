package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"referral_contest/internal/model"
	"referral_contest/internal/service"
	"referral_contest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserService is the read side of the referral ledger.
type UserService interface {
	Profile(ctx context.Context, userID int64) (*model.Profile, error)
	Leaderboard(ctx context.Context, limit int) ([]*model.User, error)
	ReferralLink(userID int64) string
}

type ContestReader interface {
	Active(ctx context.Context) ([]*model.Contest, error)
	Get(ctx context.Context, id int64) (*model.Contest, error)
}

// AdminService covers the admin panel commands.
type AdminService interface {
	ContestReader
	Create(ctx context.Context, req service.CreateContestRequest) (*model.Contest, error)
	Postpone(ctx context.Context, id int64, value int, unit model.DurationUnit) (*model.Contest, error)
	Resume(ctx context.Context, id int64) (*model.Contest, error)
	Cancel(ctx context.Context, id int64) (*model.Contest, error)
	Delete(ctx context.Context, id int64) error
	ResetPoints(ctx context.Context) error
	Finalize(ctx context.Context, id int64) (*model.Contest, []model.Winner, error)
	FinalizeLatest(ctx context.Context) (*model.Contest, []model.Winner, error)
	NotifyWinners(ctx context.Context, id int64) ([]model.Delivery, error)
	AnnounceEnded(ctx context.Context) ([]model.Delivery, error)
	ListByStatus(ctx context.Context, status model.ContestStatus) ([]*model.Contest, error)
	Statistics(ctx context.Context) (*model.Statistics, error)
	CheatLogs(ctx context.Context, limit int) ([]*model.CheatLog, error)
}

type userResponse struct {
	TelegramID          int64  `json:"telegram_id"`
	Username            string `json:"username"`
	FullName            string `json:"full_name"`
	Points              int    `json:"points"`
	SuccessfulReferrals int    `json:"successful_referrals"`
	FailedReferrals     int    `json:"failed_referrals"`
	Banned              bool   `json:"banned"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		TelegramID:          u.TelegramID,
		Username:            u.Username,
		FullName:            u.FullName,
		Points:              u.Points,
		SuccessfulReferrals: u.SuccessfulReferrals,
		FailedReferrals:     u.FailedReferrals,
		Banned:              u.Banned,
	}
}

type contestResponse struct {
	ID          int64               `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	EndTime     time.Time           `json:"end_time"`
	Status      model.ContestStatus `json:"status"`
	WinnerCount int                 `json:"winner_count"`
	FinishedAt  *time.Time          `json:"finished_at,omitempty"`
}

func newContestResponse(c *model.Contest) contestResponse {
	return contestResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		EndTime:     c.EndTime,
		Status:      c.Status,
		WinnerCount: c.WinnerCount,
		FinishedAt:  c.FinishedAt,
	}
}

func newContestsResponse(contests []*model.Contest) []contestResponse {
	out := make([]contestResponse, len(contests))
	for i, c := range contests {
		out[i] = newContestResponse(c)
	}
	return out
}

type winnerResponse struct {
	Rank       int    `json:"rank"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Points     int    `json:"points"`
}

func newWinnersResponse(winners []model.Winner) []winnerResponse {
	out := make([]winnerResponse, len(winners))
	for i, w := range winners {
		out[i] = winnerResponse{
			Rank:       w.Rank,
			TelegramID: w.TelegramID,
			Username:   w.Username,
			FullName:   w.FullName,
			Points:     w.Points,
		}
	}
	return out
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		logger.Logger().Info("invalid path id", zap.String("param", name), zap.String("value", c.Param(name)))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryInt reads an optional positive integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

// writeError maps service errors to HTTP statuses. Unexpected errors are
// logged and hidden from the client.
func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
	case errors.Is(err, service.ErrContestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrContestNotFound.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrInvalidTransition.Error()})
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidDurationUnit),
		errors.Is(err, service.ErrInvalidWinnerCount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Logger().Error("request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
