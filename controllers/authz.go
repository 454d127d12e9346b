package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

// Property scoping rules live here and nowhere else:
//
//	hr       -> every property
//	manager  -> properties with an active assignment row
//	employee -> never property-scoped; bound to one session by token
//
// Denials are uniform 403s so a manager cannot enumerate which foreign
// properties exist.

// ManagerPropertyIDs returns the properties a manager is actively
// assigned to.
func ManagerPropertyIDs(db *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.PropertyManagerAssignment{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Pluck("property_id", &ids).Error
	return ids, err
}

// CanAccessProperty evaluates the scope rule for a staff actor.
func CanAccessProperty(db *gorm.DB, userID uint, role string, propertyID uint) bool {
	if role == models.RoleHR {
		return true
	}
	if role != models.RoleManager {
		return false
	}
	ids, err := ManagerPropertyIDs(db, userID)
	if err != nil {
		utils.ErrorLogger.Printf("assignment lookup failed for user %d: %v", userID, err)
		return false
	}
	for _, id := range ids {
		if id == propertyID {
			return true
		}
	}
	return false
}

// requirePropertyAccess responds 403 and records the denial when the
// current actor is out of scope. Returns true when the request may
// proceed.
func requirePropertyAccess(c *gin.Context, db *gorm.DB, propertyID uint) bool {
	userID, role := currentStaff(c)
	if CanAccessProperty(db, userID, role, propertyID) {
		return true
	}

	if err := services.RecordAudit(db, userID, role, "property_access_denied", "property", propertyID, nil, nil, c.ClientIP()); err != nil {
		utils.ErrorLogger.Printf("audit write for access denial failed: %v", err)
	}
	utils.RespondError(c, http.StatusForbidden, utils.CodePropertyAccessDenied, ErrNoPermission)
	return false
}
