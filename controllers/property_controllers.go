package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

type PropertyController struct {
	DB *gorm.DB
}

func NewPropertyController(db *gorm.DB) *PropertyController {
	return &PropertyController{DB: db}
}

// CreateProperty -> HR only.
func (pc *PropertyController) CreateProperty(c *gin.Context) {
	type request struct {
		Name    string `json:"name" binding:"required"`
		Address string `json:"address"`
		City    string `json:"city"`
		State   string `json:"state"`
		ZipCode string `json:"zip_code"`
		Phone   string `json:"phone"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	userID, role := currentStaff(c)
	property := models.Property{
		Name:     req.Name,
		Address:  req.Address,
		City:     req.City,
		State:    req.State,
		ZipCode:  req.ZipCode,
		Phone:    req.Phone,
		IsActive: true,
	}
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&property).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "property_created", "property", property.ID, nil,
			models.JSONMap{"name": property.Name}, c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Property created", property)
}

// GetProperties -> HR sees all, managers see their assignments.
func (pc *PropertyController) GetProperties(c *gin.Context) {
	userID, role := currentStaff(c)

	var properties []models.Property
	query := pc.DB.Where("is_active = ?", true)
	if role == models.RoleManager {
		ids, err := ManagerPropertyIDs(pc.DB, userID)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
			return
		}
		query = query.Where("id IN ?", ids)
	}
	if err := query.Find(&properties).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of properties", properties)
}

// UpdateProperty -> HR only.
func (pc *PropertyController) UpdateProperty(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("property_id"))

	var property models.Property
	if err := pc.DB.First(&property, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}

	type request struct {
		Name    *string `json:"name"`
		Address *string `json:"address"`
		City    *string `json:"city"`
		State   *string `json:"state"`
		ZipCode *string `json:"zip_code"`
		Phone   *string `json:"phone"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	if req.Name != nil {
		property.Name = *req.Name
	}
	if req.Address != nil {
		property.Address = *req.Address
	}
	if req.City != nil {
		property.City = *req.City
	}
	if req.State != nil {
		property.State = *req.State
	}
	if req.ZipCode != nil {
		property.ZipCode = *req.ZipCode
	}
	if req.Phone != nil {
		property.Phone = *req.Phone
	}

	if err := pc.DB.Save(&property).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Property updated", property)
}

// DeactivateProperty -> soft delete only; history stays.
func (pc *PropertyController) DeactivateProperty(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("property_id"))

	var property models.Property
	if err := pc.DB.First(&property, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}

	userID, role := currentStaff(c)
	property.IsActive = false
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&property).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "property_deactivated", "property", property.ID,
			models.JSONMap{"is_active": true}, models.JSONMap{"is_active": false}, c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Property deactivated", property)
}

// AssignManager -> HR links a manager to a property. Re-assignment after
// removal creates a fresh row so assignment history is preserved.
func (pc *PropertyController) AssignManager(c *gin.Context) {
	propertyID, _ := strconv.Atoi(c.Param("property_id"))

	var input struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	var property models.Property
	if err := pc.DB.First(&property, propertyID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}
	var manager models.User
	if err := pc.DB.Where("id = ? AND role = ? AND is_active = ?", input.UserID, models.RoleManager, true).First(&manager).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, errors.New("manager not found"))
		return
	}

	var existing int64
	pc.DB.Model(&models.PropertyManagerAssignment{}).
		Where("property_id = ? AND user_id = ? AND is_active = ?", propertyID, input.UserID, true).
		Count(&existing)
	if existing > 0 {
		utils.RespondError(c, http.StatusConflict, utils.CodeConflict, errors.New("manager already assigned to this property"))
		return
	}

	assignment := models.PropertyManagerAssignment{
		PropertyID: uint(propertyID),
		UserID:     input.UserID,
		IsActive:   true,
		AssignedAt: time.Now(),
	}
	userID, role := currentStaff(c)
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "manager_assigned", "property", uint(propertyID), nil,
			models.JSONMap{"user_id": input.UserID}, c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Manager assigned", assignment)
}

// UnassignManager deactivates the active assignment row.
func (pc *PropertyController) UnassignManager(c *gin.Context) {
	propertyID, _ := strconv.Atoi(c.Param("property_id"))
	managerID, _ := strconv.Atoi(c.Param("user_id"))

	var assignment models.PropertyManagerAssignment
	if err := pc.DB.Where("property_id = ? AND user_id = ? AND is_active = ?", propertyID, managerID, true).
		First(&assignment).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, errors.New("assignment not found"))
		return
	}

	now := time.Now()
	assignment.IsActive = false
	assignment.RemovedAt = &now
	userID, role := currentStaff(c)
	err := pc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&assignment).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "manager_unassigned", "property", uint(propertyID),
			models.JSONMap{"user_id": managerID, "is_active": true}, models.JSONMap{"user_id": managerID, "is_active": false}, c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Manager unassigned", assignment)
}
