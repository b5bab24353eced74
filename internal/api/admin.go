package api

import (
	"net/http"
	"time"

	"referral_contest/internal/middleware"
	"referral_contest/internal/model"
	"referral_contest/internal/service"
	"referral_contest/pkg/auth"
	"referral_contest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type adminRoutes struct {
	as AdminService
}

func NewAdminRoutes(handler *gin.RouterGroup, as AdminService, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &adminRoutes{as: as}

	h := handler.Group("/admin")
	h.Use(a.TelegramAuthMiddleware(), authz.AdminOnly())
	{
		h.GET("/contests", r.ListContests)
		h.POST("/contests", r.CreateContest)
		h.DELETE("/contests/:id", r.DeleteContest)
		h.POST("/contests/:id/postpone", r.PostponeContest)
		h.POST("/contests/:id/resume", r.ResumeContest)
		h.POST("/contests/:id/cancel", r.CancelContest)
		h.POST("/contests/:id/finalize", r.FinalizeContest)
		h.POST("/contests/latest/finalize", r.FinalizeLatest)
		h.POST("/contests/:id/notify-winners", r.NotifyWinners)
		h.POST("/announcements/ended", r.AnnounceEnded)
		h.POST("/points/reset", r.ResetPoints)
		h.GET("/cheat-logs", r.GetCheatLogs)
		h.GET("/statistics", r.GetStatistics)
	}
}

type CreateContestRequest struct {
	Title         string             `json:"title"`
	Description   string             `json:"description" binding:"required"`
	DurationValue int                `json:"duration_value" binding:"required"`
	DurationUnit  model.DurationUnit `json:"duration_unit" binding:"required"`
	WinnerCount   int                `json:"winner_count" binding:"required"`
}

type PostponeRequest struct {
	Value int                `json:"value" binding:"required"`
	Unit  model.DurationUnit `json:"unit" binding:"required"`
}

type deliveriesResponse struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

func newDeliveriesResponse(deliveries []model.Delivery) deliveriesResponse {
	sent, failed := model.CountDeliveries(deliveries)
	return deliveriesResponse{Sent: sent, Failed: failed}
}

type finalizeResponse struct {
	Contest contestResponse  `json:"contest"`
	Winners []winnerResponse `json:"winners"`
}

func (r *adminRoutes) ListContests(c *gin.Context) {
	status := model.ContestStatus(c.DefaultQuery("status", string(model.ContestActive)))
	if !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	contests, err := r.as.ListByStatus(c.Request.Context(), status)
	if err != nil {
		writeError(c, "list contests", err)
		return
	}

	c.JSON(http.StatusOK, newContestsResponse(contests))
}

func (r *adminRoutes) CreateContest(c *gin.Context) {
	var req CreateContestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	contest, err := r.as.Create(c.Request.Context(), service.CreateContestRequest{
		Title:         req.Title,
		Description:   req.Description,
		DurationValue: req.DurationValue,
		DurationUnit:  req.DurationUnit,
		WinnerCount:   req.WinnerCount,
	})
	if err != nil {
		writeError(c, "create contest", err)
		return
	}

	c.JSON(http.StatusCreated, newContestResponse(contest))
}

func (r *adminRoutes) PostponeContest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req PostponeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger().Info("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	contest, err := r.as.Postpone(c.Request.Context(), id, req.Value, req.Unit)
	if err != nil {
		writeError(c, "postpone contest", err)
		return
	}

	c.JSON(http.StatusOK, newContestResponse(contest))
}

func (r *adminRoutes) ResumeContest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	contest, err := r.as.Resume(c.Request.Context(), id)
	if err != nil {
		writeError(c, "resume contest", err)
		return
	}

	c.JSON(http.StatusOK, newContestResponse(contest))
}

func (r *adminRoutes) CancelContest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	contest, err := r.as.Cancel(c.Request.Context(), id)
	if err != nil {
		writeError(c, "cancel contest", err)
		return
	}

	c.JSON(http.StatusOK, newContestResponse(contest))
}

func (r *adminRoutes) DeleteContest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := r.as.Delete(c.Request.Context(), id); err != nil {
		writeError(c, "delete contest", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (r *adminRoutes) FinalizeContest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	contest, winners, err := r.as.Finalize(c.Request.Context(), id)
	if err != nil {
		writeError(c, "finalize contest", err)
		return
	}

	c.JSON(http.StatusOK, finalizeResponse{
		Contest: newContestResponse(contest),
		Winners: newWinnersResponse(winners),
	})
}

func (r *adminRoutes) FinalizeLatest(c *gin.Context) {
	contest, winners, err := r.as.FinalizeLatest(c.Request.Context())
	if err != nil {
		writeError(c, "finalize latest contest", err)
		return
	}

	c.JSON(http.StatusOK, finalizeResponse{
		Contest: newContestResponse(contest),
		Winners: newWinnersResponse(winners),
	})
}

func (r *adminRoutes) NotifyWinners(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deliveries, err := r.as.NotifyWinners(c.Request.Context(), id)
	if err != nil {
		writeError(c, "notify winners", err)
		return
	}

	c.JSON(http.StatusOK, newDeliveriesResponse(deliveries))
}

func (r *adminRoutes) AnnounceEnded(c *gin.Context) {
	deliveries, err := r.as.AnnounceEnded(c.Request.Context())
	if err != nil {
		writeError(c, "announce ended", err)
		return
	}

	c.JSON(http.StatusOK, newDeliveriesResponse(deliveries))
}

func (r *adminRoutes) ResetPoints(c *gin.Context) {
	if err := r.as.ResetPoints(c.Request.Context()); err != nil {
		writeError(c, "reset points", err)
		return
	}

	c.Status(http.StatusNoContent)
}

type cheatLogResponse struct {
	ID           int64           `json:"id"`
	Type         model.CheatType `json:"type"`
	FirstUserID  int64           `json:"first_user_id"`
	SecondUserID *int64          `json:"second_user_id,omitempty"`
	DetectedAt   time.Time       `json:"detected_at"`
}

func (r *adminRoutes) GetCheatLogs(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	logs, err := r.as.CheatLogs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, "get cheat logs", err)
		return
	}

	out := make([]cheatLogResponse, len(logs))
	for i, l := range logs {
		out[i] = cheatLogResponse{
			ID:           l.ID,
			Type:         l.Type,
			FirstUserID:  l.FirstUserID,
			SecondUserID: l.SecondUserID,
			DetectedAt:   l.DetectedAt,
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *adminRoutes) GetStatistics(c *gin.Context) {
	stats, err := r.as.Statistics(c.Request.Context())
	if err != nil {
		writeError(c, "get statistics", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_users":    stats.TotalUsers,
		"banned_users":   stats.BannedUsers,
		"total_points":   stats.TotalPoints,
		"total_contests": stats.TotalContests,
	})
}
