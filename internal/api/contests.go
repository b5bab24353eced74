package api

import (
	"net/http"

	"referral_contest/pkg/auth"

	"github.com/gin-gonic/gin"
)

type contestRoutes struct {
	cs ContestReader
}

func NewContestRoutes(handler *gin.RouterGroup, cs ContestReader, a *auth.TelegramAuth) {
	r := &contestRoutes{cs: cs}

	h := handler.Group("/contests")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/active", r.GetActive)
		h.GET("/:id", r.GetContest)
	}
}

func (r *contestRoutes) GetActive(c *gin.Context) {
	contests, err := r.cs.Active(c.Request.Context())
	if err != nil {
		writeError(c, "list active contests", err)
		return
	}

	c.JSON(http.StatusOK, newContestsResponse(contests))
}

func (r *contestRoutes) GetContest(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	contest, err := r.cs.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get contest", err)
		return
	}

	c.JSON(http.StatusOK, newContestResponse(contest))
}
