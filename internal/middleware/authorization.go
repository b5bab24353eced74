package middleware

import (
	"net/http"

	"referral_contest/pkg/auth"
	"referral_contest/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authorization restricts routes to the configured bot admins. It must run
// after auth.TelegramAuthMiddleware.
type Authorization struct {
	admins map[int64]bool
}

func NewAuthorization(adminIDs []int64) *Authorization {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Authorization{admins: admins}
}

func (a *Authorization) IsAdmin(telegramID int64) bool {
	return a.admins[telegramID]
}

func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		telegramUser, ok := auth.UserFromContext(c)
		if !ok {
			log.Error("telegram user data not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !a.IsAdmin(telegramUser.ID) {
			log.Info("unauthorized access attempt to admin endpoint",
				zap.Int64("telegram_id", telegramUser.ID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Set("is_admin", true)
		c.Next()
	}
}
