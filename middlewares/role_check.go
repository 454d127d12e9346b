package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenhotels/onboarding-app/utils"
)

// RequireRoles gates a route group to the given staff roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleInterface, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, utils.CodeUnauthorized, errors.New("unauthorized"))
			c.Abort()
			return
		}
		role, _ := roleInterface.(string)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		utils.RespondError(c, http.StatusForbidden, utils.CodePropertyAccessDenied, errors.New("access denied"))
		c.Abort()
	}
}
