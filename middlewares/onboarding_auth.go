package middlewares

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

// All token failures look identical to the caller so that probing cannot
// reveal which links ever existed. The audit log keeps the real reason.
var errLinkInvalid = errors.New("link invalid or expired")

func extractCapabilityToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
		return authHeader[7:]
	}
	return ""
}

func denyToken(c *gin.Context, db *gorm.DB, reason string) {
	// Access-control decisions are audited alongside state transitions.
	if err := services.RecordAudit(db, 0, "employee", "token_denied:"+reason, "token", 0, nil, nil, c.ClientIP()); err != nil {
		utils.ErrorLogger.Printf("audit write for token denial failed: %v", err)
	}
	utils.RespondError(c, http.StatusUnauthorized, utils.CodeTokenInvalid, errLinkInvalid)
	c.Abort()
}

// OnboardingAuthMiddleware authenticates employee requests carrying a
// session capability token. A structurally valid token whose session has
// already reached a terminal phase is rejected as revoked.
func OnboardingAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractCapabilityToken(c)
		if tokenString == "" {
			denyToken(c, db, "missing")
			return
		}

		claims, err := utils.ValidateCapabilityToken(tokenString)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				denyToken(c, db, "expired")
			} else {
				denyToken(c, db, "invalid")
			}
			return
		}
		if claims.Purpose != utils.PurposeOnboarding {
			denyToken(c, db, "wrong_purpose")
			return
		}
		if services.IsTokenRevoked(claims.ID) {
			denyToken(c, db, "revoked")
			return
		}

		var session models.OnboardingSession
		if err := db.First(&session, claims.SessionID).Error; err != nil {
			denyToken(c, db, "session_missing")
			return
		}
		if session.EmployeeID != claims.EmployeeID {
			denyToken(c, db, "employee_mismatch")
			return
		}
		if session.CurrentPhase.IsTerminal() {
			denyToken(c, db, "session_terminal")
			return
		}

		c.Set("claims", claims)
		c.Set("session", &session)
		c.Next()
	}
}

// ModuleAuthMiddleware authenticates single-form module tokens. Completed
// or expired modules reject the token even when its signature is fine.
func ModuleAuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractCapabilityToken(c)
		if tokenString == "" {
			denyToken(c, db, "missing")
			return
		}

		claims, err := utils.ValidateCapabilityToken(tokenString)
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				denyToken(c, db, "expired")
			} else {
				denyToken(c, db, "invalid")
			}
			return
		}
		if claims.Purpose != utils.PurposeModule {
			denyToken(c, db, "wrong_purpose")
			return
		}
		if services.IsTokenRevoked(claims.ID) {
			denyToken(c, db, "revoked")
			return
		}

		var module models.EmployeeModule
		if err := db.First(&module, claims.ModuleID).Error; err != nil {
			denyToken(c, db, "module_missing")
			return
		}
		if module.EmployeeID != claims.EmployeeID || module.ModuleType != claims.ModuleType {
			denyToken(c, db, "module_mismatch")
			return
		}
		if module.CompletedAt != nil {
			denyToken(c, db, "module_completed")
			return
		}
		if time.Now().After(module.ExpiresAt) {
			denyToken(c, db, "module_expired")
			return
		}

		c.Set("claims", claims)
		c.Set("module", &module)
		c.Next()
	}
}
