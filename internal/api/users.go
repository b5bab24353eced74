package api

import (
	"net/http"

	"referral_contest/internal/middleware"
	"referral_contest/pkg/auth"
	"referral_contest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type userRoutes struct {
	us    UserService
	authz *middleware.Authorization
}

func NewUserRoutes(handler *gin.RouterGroup, us UserService, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &userRoutes{us: us, authz: authz}

	h := handler.Group("")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/users/:telegram_id/profile", r.GetProfile)
		h.GET("/leaderboard", r.GetLeaderboard)
	}
}

type profileResponse struct {
	User           userResponse  `json:"user"`
	LeaderScore    int           `json:"leader_score"`
	Percentage     float64       `json:"percentage"`
	NextCompetitor *userResponse `json:"next_competitor,omitempty"`
	Gap            int           `json:"gap"`
	ReferralLink   string        `json:"referral_link"`
}

// GetProfile is readable by the user themself and by admins.
func (r *userRoutes) GetProfile(c *gin.Context) {
	log := logger.Logger()

	id, ok := parseID(c, "telegram_id")
	if !ok {
		return
	}

	caller, ok := auth.UserFromContext(c)
	if !ok {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if caller.ID != id && !r.authz.IsAdmin(caller.ID) {
		log.Info("profile access denied",
			zap.Int64("caller_id", caller.ID),
			zap.Int64("telegram_id", id))
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	profile, err := r.us.Profile(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get profile", err)
		return
	}

	out := profileResponse{
		User:         newUserResponse(profile.User),
		LeaderScore:  profile.LeaderScore,
		Percentage:   profile.Percentage,
		Gap:          profile.Gap,
		ReferralLink: r.us.ReferralLink(id),
	}
	if profile.NextCompetitor != nil {
		next := newUserResponse(profile.NextCompetitor)
		out.NextCompetitor = &next
	}

	c.JSON(http.StatusOK, out)
}

type leaderboardEntry struct {
	Rank int `json:"rank"`
	userResponse
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	users, err := r.us.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, "get leaderboard", err)
		return
	}

	out := make([]leaderboardEntry, len(users))
	for i, u := range users {
		out[i] = leaderboardEntry{Rank: i + 1, userResponse: newUserResponse(u)}
	}

	c.JSON(http.StatusOK, out)
}
