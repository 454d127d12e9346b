package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/events"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

type ApplicationController struct {
	DB                *gorm.DB
	OnboardingBaseURL string
}

func NewApplicationController(db *gorm.DB, onboardingBaseURL string) *ApplicationController {
	return &ApplicationController{DB: db, OnboardingBaseURL: onboardingBaseURL}
}

// SubmitApplication -> public intake, no auth.
func (ac *ApplicationController) SubmitApplication(c *gin.Context) {
	propertyID, err := strconv.Atoi(c.Param("property_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("invalid property id"))
		return
	}

	type request struct {
		Department    string         `json:"department" binding:"required"`
		Position      string         `json:"position" binding:"required"`
		Name          string         `json:"name" binding:"required"`
		Email         string         `json:"email" binding:"required,email"`
		Phone         string         `json:"phone"`
		ApplicantData models.JSONMap `json:"applicant_data"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	var property models.Property
	if err := ac.DB.Where("id = ? AND is_active = ?", propertyID, true).First(&property).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, errors.New("property not found"))
		return
	}

	email := strings.ToLower(req.Email)

	// One live pending application per (email, property, position). The
	// partial unique index backs this up against concurrent submissions.
	var pending int64
	ac.DB.Model(&models.JobApplication{}).
		Where("applicant_email = ? AND property_id = ? AND position = ? AND status = ?",
			email, propertyID, req.Position, models.ApplicationPending).
		Count(&pending)
	if pending > 0 {
		utils.RespondError(c, http.StatusConflict, utils.CodeDuplicatePending, ErrDuplicatePending)
		return
	}

	app := models.JobApplication{
		PropertyID:     uint(propertyID),
		Department:     req.Department,
		Position:       req.Position,
		ApplicantName:  req.Name,
		ApplicantEmail: email,
		ApplicantPhone: req.Phone,
		ApplicantData:  req.ApplicantData,
		Status:         models.ApplicationPending,
		AppliedAt:      time.Now(),
	}
	// The insert and its audit entry commit together: an application
	// never exists without its trail row.
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&app).Error; err != nil {
			// Index violation from a racing duplicate lands here.
			return ErrDuplicatePending
		}
		return services.RecordAudit(tx, 0, "applicant", "application_submitted", "application", app.ID,
			nil, services.ApplicationSnapshot(&app), c.ClientIP())
	})
	if err != nil {
		if errors.Is(err, ErrDuplicatePending) {
			utils.RespondError(c, http.StatusConflict, utils.CodeDuplicatePending, ErrDuplicatePending)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	events.BroadcastApplicationSubmitted(app)

	utils.RespondJSON(c, http.StatusCreated, "Application submitted", app)
}

// GetApplications -> property-scoped listing with optional filters.
func (ac *ApplicationController) GetApplications(c *gin.Context) {
	userID, role := currentStaff(c)

	query := ac.DB.Model(&models.JobApplication{})
	if propertyParam := c.Query("property_id"); propertyParam != "" {
		propertyID, err := strconv.Atoi(propertyParam)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("invalid property id"))
			return
		}
		if !requirePropertyAccess(c, ac.DB, uint(propertyID)) {
			return
		}
		query = query.Where("property_id = ?", propertyID)
	} else if role == models.RoleManager {
		ids, err := ManagerPropertyIDs(ac.DB, userID)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
			return
		}
		query = query.Where("property_id IN ?", ids)
	}
	if status := c.Query("status"); status != "" {
		if !models.ApplicationStatus(status).Valid() {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("unknown status"))
			return
		}
		query = query.Where("status = ?", status)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department = ?", department)
	}

	var apps []models.JobApplication
	if err := query.Order("applied_at DESC").Find(&apps).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of applications", apps)
}

// GetApplicationByID -> detail, property-scoped.
func (ac *ApplicationController) GetApplicationByID(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("application_id"))

	var app models.JobApplication
	if err := ac.DB.First(&app, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}
	if !requirePropertyAccess(c, ac.DB, app.PropertyID) {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Application detail", app)
}

// ApproveApplication approves one application and runs the full hire side
// effect in one transaction: status flip, employee row, onboarding session,
// compliance deadline, capability token, and the talent-pool sweep of
// sibling applications for the same opening.
func (ac *ApplicationController) ApproveApplication(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("application_id"))
	userID, role := currentStaff(c)

	type request struct {
		HireDate     string `json:"hire_date" binding:"required"` // YYYY-MM-DD
		PayRate      string `json:"pay_rate" binding:"required"`
		PayFrequency string `json:"pay_frequency"`
		ManagerID    uint   `json:"manager_id"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("hire_date must be YYYY-MM-DD"))
		return
	}
	payRate, err := decimal.NewFromString(req.PayRate)
	if err != nil || payRate.IsNegative() {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("pay_rate must be a non-negative amount"))
		return
	}

	managerID := req.ManagerID
	if managerID == 0 {
		if role != models.RoleManager {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("manager_id is required"))
			return
		}
		managerID = userID
	}

	var app models.JobApplication
	if err := ac.DB.First(&app, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}
	if !requirePropertyAccess(c, ac.DB, app.PropertyID) {
		return
	}
	if !app.Status.CanTransitionTo(models.ApplicationApproved) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("cannot approve application in status %s", app.Status))
		return
	}

	before := services.ApplicationSnapshot(&app)
	now := time.Now()

	var (
		employee   models.Employee
		session    models.OnboardingSession
		token      string
		sweptIDs   []uint
	)

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		// Compare-and-set on status so a racing second approval loses
		// cleanly instead of double-hiring.
		res := tx.Model(&models.JobApplication{}).
			Where("id = ? AND status = ?", app.ID, models.ApplicationPending).
			Updates(map[string]interface{}{
				"status":      models.ApplicationApproved,
				"reviewed_by": userID,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		employee = models.Employee{
			ApplicationID:    app.ID,
			PropertyID:       app.PropertyID,
			ManagerID:        managerID,
			Name:             app.ApplicantName,
			Email:            app.ApplicantEmail,
			Department:       app.Department,
			Position:         app.Position,
			HireDate:         hireDate,
			PayRate:          payRate,
			EmploymentStatus: models.EmploymentActive,
			OnboardingStatus: "in_progress",
		}
		if req.PayFrequency != "" {
			employee.PayFrequency = req.PayFrequency
		}
		if err := tx.Create(&employee).Error; err != nil {
			return err
		}

		deadline := models.ComplianceDeadline{
			EmployeeID:      employee.ID,
			RequirementType: models.RequirementI9Section2,
			DueDate:         utils.AddBusinessDays(hireDate, 3),
			Status:          models.DeadlinePending,
		}
		if err := tx.Create(&deadline).Error; err != nil {
			return err
		}

		session = models.OnboardingSession{
			EmployeeID:     employee.ID,
			Token:          "pending",
			TokenExpiresAt: now,
			CurrentPhase:   models.PhaseEmployee,
			CompletedSteps: models.StringList{},
			StepData:       models.JSONMap{},
			FormArtifacts:  models.JSONMap{},
		}
		if err := tx.Create(&session).Error; err != nil {
			return err
		}

		var exp time.Time
		token, exp, err = utils.IssueSessionToken(employee.ID, session.ID, utils.DefaultSessionTokenTTL)
		if err != nil {
			return err
		}
		session.Token = token
		session.TokenExpiresAt = exp
		if err := tx.Model(&session).Updates(map[string]interface{}{
			"token":            token,
			"token_expires_at": exp,
		}).Error; err != nil {
			return err
		}

		// Position filled: remaining pending candidates for the same
		// opening move to the talent pool. The status guard makes the
		// loser of a concurrent double-approval no-op on rows already
		// moved by the winner.
		if err := tx.Model(&models.JobApplication{}).
			Where("property_id = ? AND position = ? AND status = ? AND id <> ?",
				app.PropertyID, app.Position, models.ApplicationPending, app.ID).
			Pluck("id", &sweptIDs).Error; err != nil {
			return err
		}
		if len(sweptIDs) > 0 {
			if err := tx.Model(&models.JobApplication{}).
				Where("id IN ? AND status = ?", sweptIDs, models.ApplicationPending).
				Updates(map[string]interface{}{
					"status":           models.ApplicationTalentPool,
					"talent_pool_date": now,
					"reviewed_by":      userID,
					"reviewed_at":      now,
				}).Error; err != nil {
				return err
			}
		}

		app.Status = models.ApplicationApproved
		if err := services.RecordAudit(tx, userID, role, "application_approved", "application", app.ID,
			before, services.ApplicationSnapshot(&app), c.ClientIP()); err != nil {
			return err
		}
		if err := services.RecordAudit(tx, userID, role, "employee_created", "employee", employee.ID,
			nil, models.JSONMap{"application_id": app.ID, "property_id": app.PropertyID}, c.ClientIP()); err != nil {
			return err
		}
		if err := services.RecordAudit(tx, userID, role, "onboarding_session_created", "onboarding_session", session.ID,
			nil, services.SessionSnapshot(&session), c.ClientIP()); err != nil {
			return err
		}
		for _, sid := range sweptIDs {
			if err := services.RecordAudit(tx, userID, role, "application_talent_pooled", "application", sid,
				models.JSONMap{"status": string(models.ApplicationPending)},
				models.JSONMap{"status": string(models.ApplicationTalentPool)}, c.ClientIP()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusConflict, utils.CodeConflict, errors.New("application was already reviewed"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	onboardingURL := fmt.Sprintf("%s?token=%s", ac.OnboardingBaseURL, token)
	services.Notify(employee.Email, services.TemplateOnboardingInvite, map[string]interface{}{
		"name":           employee.Name,
		"onboarding_url": onboardingURL,
	})
	events.BroadcastApplicationStatus(app)

	utils.RespondJSON(c, http.StatusOK, "Application approved", gin.H{
		"application":    app,
		"employee":       employee,
		"session_id":     session.ID,
		"onboarding_url": onboardingURL,
		"swept_to_talent_pool": sweptIDs,
	})
}

// transitionApplication applies a guarded single-status transition with
// audit. Shared by reject, talent-pool, reactivate and bulk update.
func (ac *ApplicationController) transitionApplication(c *gin.Context, app *models.JobApplication, next models.ApplicationStatus, reason string, actorID uint, actorRole string) error {
	if !app.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, app.Status, next)
	}

	before := services.ApplicationSnapshot(app)
	now := time.Now()
	updates := map[string]interface{}{
		"status":      next,
		"reviewed_by": actorID,
		"reviewed_at": now,
	}
	switch next {
	case models.ApplicationRejected:
		updates["rejection_reason"] = reason
	case models.ApplicationTalentPool:
		updates["talent_pool_date"] = now
	case models.ApplicationPending:
		updates["talent_pool_date"] = nil
	}

	return ac.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.JobApplication{}).
			Where("id = ? AND status = ?", app.ID, app.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		prev := app.Status
		app.Status = next
		app.ReviewedBy = &actorID
		app.ReviewedAt = &now
		after := services.ApplicationSnapshot(app)
		after["previous_status"] = string(prev)

		return services.RecordAudit(tx, actorID, actorRole, "application_"+string(next), "application", app.ID,
			before, after, c.ClientIP())
	})
}

// RejectApplication -> explicit rejection, reason required.
func (ac *ApplicationController) RejectApplication(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("application_id"))
	userID, role := currentStaff(c)

	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, ErrReasonRequired)
		return
	}

	var app models.JobApplication
	if err := ac.DB.First(&app, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}
	if !requirePropertyAccess(c, ac.DB, app.PropertyID) {
		return
	}

	if err := ac.transitionApplication(c, &app, models.ApplicationRejected, input.Reason, userID, role); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	app.RejectionReason = input.Reason

	events.BroadcastApplicationStatus(app)
	utils.RespondJSON(c, http.StatusOK, "Application rejected", app)
}

// TalentPoolApplication -> "keep for later" path, distinct from rejection.
func (ac *ApplicationController) TalentPoolApplication(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("application_id"))
	userID, role := currentStaff(c)

	var app models.JobApplication
	if err := ac.DB.First(&app, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}
	if !requirePropertyAccess(c, ac.DB, app.PropertyID) {
		return
	}

	if err := ac.transitionApplication(c, &app, models.ApplicationTalentPool, "", userID, role); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	events.BroadcastApplicationStatus(app)
	utils.RespondJSON(c, http.StatusOK, "Application moved to talent pool", app)
}

// ReactivateApplication -> talent_pool back to pending.
func (ac *ApplicationController) ReactivateApplication(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("application_id"))
	userID, role := currentStaff(c)

	var app models.JobApplication
	if err := ac.DB.First(&app, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return
	}
	if !requirePropertyAccess(c, ac.DB, app.PropertyID) {
		return
	}

	if err := ac.transitionApplication(c, &app, models.ApplicationPending, "", userID, role); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	app.TalentPoolDate = nil

	events.BroadcastApplicationStatus(app)
	utils.RespondJSON(c, http.StatusOK, "Application reactivated", app)
}

// WithdrawApplication -> applicant-initiated, matched on email.
func (ac *ApplicationController) WithdrawApplication(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("application_id"))

	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	var app models.JobApplication
	if err := ac.DB.Where("id = ? AND applicant_email = ?", id, strings.ToLower(input.Email)).First(&app).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, errors.New("application not found"))
		return
	}

	if err := ac.transitionApplication(c, &app, models.ApplicationWithdrawn, "", 0, "applicant"); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Application withdrawn", app)
}

// BulkStatusUpdate applies one transition to a batch. Items validate
// independently; failures are collected, successes commit.
func (ac *ApplicationController) BulkStatusUpdate(c *gin.Context) {
	userID, role := currentStaff(c)

	var input struct {
		ApplicationIDs []uint `json:"application_ids" binding:"required,min=1"`
		NewStatus      string `json:"new_status" binding:"required"`
		Reason         string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	next := models.ApplicationStatus(input.NewStatus)
	if !next.Valid() || next == models.ApplicationApproved {
		// Approval carries hire side effects and never happens in bulk.
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("unsupported bulk status"))
		return
	}
	if next == models.ApplicationRejected && input.Reason == "" {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, ErrReasonRequired)
		return
	}

	type failure struct {
		ApplicationID uint   `json:"application_id"`
		Error         string `json:"error"`
	}
	var (
		updated []uint
		failed  []failure
	)

	for _, appID := range input.ApplicationIDs {
		var app models.JobApplication
		if err := ac.DB.First(&app, appID).Error; err != nil {
			failed = append(failed, failure{appID, "not found"})
			continue
		}
		if !CanAccessProperty(ac.DB, userID, role, app.PropertyID) {
			failed = append(failed, failure{appID, "access denied"})
			continue
		}
		if err := ac.transitionApplication(c, &app, next, input.Reason, userID, role); err != nil {
			failed = append(failed, failure{appID, err.Error()})
			continue
		}
		updated = append(updated, appID)
		events.BroadcastApplicationStatus(app)
	}

	utils.RespondJSON(c, http.StatusOK, "Bulk status update processed", gin.H{
		"updated": updated,
		"failed":  failed,
	})
}
