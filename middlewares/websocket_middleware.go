package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/utils"
)

// WebSocketAuthMiddleware authenticates dashboard websocket upgrades.
// Browsers cannot set headers on ws connects, so the token rides the
// query string.
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, utils.CodeUnauthorized, errors.New("token missing"))
			c.Abort()
			return
		}

		claims, err := utils.ParseStaffToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, utils.CodeUnauthorized, errors.New("invalid or expired token"))
			c.Abort()
			return
		}
		if claims.Role != models.RoleHR && claims.Role != models.RoleManager {
			utils.RespondError(c, http.StatusForbidden, utils.CodePropertyAccessDenied, errors.New("access denied"))
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}
