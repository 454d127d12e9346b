package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/events"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

// HRController covers final approval, rejection, targeted change
// requests, module grants, and compliance/audit oversight.
type HRController struct {
	DB                *gorm.DB
	OnboardingBaseURL string
}

func NewHRController(db *gorm.DB, onboardingBaseURL string) *HRController {
	return &HRController{DB: db, OnboardingBaseURL: onboardingBaseURL}
}

func (hc *HRController) loadSession(c *gin.Context) (*models.OnboardingSession, *models.Employee, bool) {
	id, _ := strconv.Atoi(c.Param("session_id"))

	var session models.OnboardingSession
	if err := hc.DB.First(&session, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return nil, nil, false
	}
	var employee models.Employee
	if err := hc.DB.First(&employee, session.EmployeeID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return nil, nil, false
	}
	return &session, &employee, true
}

// revokeSessionToken blocks the session's capability token ahead of its
// natural expiry once the session goes terminal.
func revokeSessionToken(session *models.OnboardingSession) {
	claims, err := utils.ValidateCapabilityToken(session.Token)
	if err != nil {
		return // already expired or never issued; nothing to block
	}
	services.RevokeToken(claims.ID, session.TokenExpiresAt)
}

// PendingSessions lists sessions awaiting HR, optionally filtered by phase.
func (hc *HRController) PendingSessions(c *gin.Context) {
	phase := models.OnboardingPhase(c.DefaultQuery("phase", string(models.PhaseHRApproval)))
	if !phase.Valid() {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("unknown phase"))
		return
	}

	var sessions []models.OnboardingSession
	if err := hc.DB.Where("current_phase = ?", phase).Find(&sessions).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Pending onboarding sessions", sessions)
}

// HRApprove is the final, terminal approval.
func (hc *HRController) HRApprove(c *gin.Context) {
	session, employee, ok := hc.loadSession(c)
	if !ok {
		return
	}
	userID, role := currentStaff(c)

	if session.CurrentPhase != models.PhaseHRApproval {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("session is in phase %s", session.CurrentPhase))
		return
	}
	if !session.CurrentPhase.CanTransitionTo(models.PhaseApproved) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, ErrInvalidTransition)
		return
	}

	before := services.SessionSnapshot(session)
	now := time.Now()
	session.CurrentPhase = models.PhaseApproved
	session.ApprovedBy = &userID
	session.HRReviewedBy = &userID
	session.HRReviewedAt = &now

	err := hc.DB.Transaction(func(tx *gorm.DB) error {
		// Phase-guarded write: two HR users deciding the same session
		// race, and exactly one update matches. The loser must not
		// stamp approved_by over an already-terminal row.
		res := tx.Model(&models.OnboardingSession{}).
			Where("id = ? AND current_phase = ?", session.ID, models.PhaseHRApproval).
			Updates(map[string]interface{}{
				"current_phase":  session.CurrentPhase,
				"approved_by":    userID,
				"hr_reviewed_by": userID,
				"hr_reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		if err := tx.Model(&models.Employee{}).Where("id = ?", employee.ID).
			Update("onboarding_status", "approved").Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "hr_approved", "onboarding_session", session.ID,
			before, services.SessionSnapshot(session), c.ClientIP())
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusConflict, utils.CodeConflict, errors.New("session was already reviewed"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	revokeSessionToken(session)
	services.Notify(employee.Email, services.TemplateOnboardingDone, map[string]interface{}{
		"name": employee.Name,
	})
	events.BroadcastOnboardingPhase(*session, employee.PropertyID)

	utils.RespondJSON(c, http.StatusOK, "Onboarding approved", session)
}

// HRReject terminates the session from either review phase.
func (hc *HRController) HRReject(c *gin.Context) {
	session, employee, ok := hc.loadSession(c)
	if !ok {
		return
	}
	userID, role := currentStaff(c)

	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, ErrReasonRequired)
		return
	}

	if !session.CurrentPhase.CanTransitionTo(models.PhaseRejected) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("cannot reject session in phase %s", session.CurrentPhase))
		return
	}

	before := services.SessionSnapshot(session)
	now := time.Now()
	prev := session.CurrentPhase
	session.CurrentPhase = models.PhaseRejected
	session.RejectedBy = &userID
	session.RejectedAt = &now
	session.RejectionReason = input.Reason

	err := hc.DB.Transaction(func(tx *gorm.DB) error {
		// Guarded on the phase we validated against, so a concurrent
		// decision wins and this one surfaces as a conflict.
		res := tx.Model(&models.OnboardingSession{}).
			Where("id = ? AND current_phase = ?", session.ID, prev).
			Updates(map[string]interface{}{
				"current_phase":    session.CurrentPhase,
				"rejected_by":      userID,
				"rejected_at":      now,
				"rejection_reason": input.Reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		if err := tx.Model(&models.Employee{}).Where("id = ?", employee.ID).
			Update("onboarding_status", "rejected").Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "hr_rejected", "onboarding_session", session.ID,
			before, services.SessionSnapshot(session), c.ClientIP())
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusConflict, utils.CodeConflict, errors.New("session was already reviewed"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	revokeSessionToken(session)
	services.Notify(employee.Email, services.TemplateOnboardingStopped, map[string]interface{}{
		"reason": input.Reason,
	})
	events.BroadcastOnboardingPhase(*session, employee.PropertyID)

	utils.RespondJSON(c, http.StatusOK, "Onboarding rejected", session)
}

// HRRequestChanges reverts the session to the employee or the manager.
func (hc *HRController) HRRequestChanges(c *gin.Context) {
	session, employee, ok := hc.loadSession(c)
	if !ok {
		return
	}
	userID, role := currentStaff(c)

	var input struct {
		Target  string `json:"target" binding:"required"` // employee or manager
		Changes []struct {
			Form   string `json:"form" binding:"required"`
			Reason string `json:"reason" binding:"required"`
		} `json:"changes" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	var target models.OnboardingPhase
	switch input.Target {
	case "employee":
		target = models.PhaseEmployee
	case "manager":
		target = models.PhaseManagerReview
	default:
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("target must be employee or manager"))
		return
	}

	if !session.CurrentPhase.CanTransitionTo(target) || !session.CurrentPhase.IsBackward(target) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("cannot request changes from phase %s to %s", session.CurrentPhase, target))
		return
	}

	before := services.SessionSnapshot(session)
	now := time.Now().Format(time.RFC3339)
	prev := session.CurrentPhase
	for _, ch := range input.Changes {
		session.RequestedChanges = append(session.RequestedChanges, models.ChangeRequest{
			Form:        ch.Form,
			Reason:      ch.Reason,
			RequestedBy: userID,
			RequestedAt: now,
		})
	}
	session.CurrentPhase = target

	err := hc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OnboardingSession{}).
			Where("id = ? AND current_phase = ?", session.ID, prev).
			Updates(map[string]interface{}{
				"current_phase":     session.CurrentPhase,
				"requested_changes": session.RequestedChanges,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return services.RecordAudit(tx, userID, role, "hr_requested_changes", "onboarding_session", session.ID,
			before, services.SessionSnapshot(session), c.ClientIP())
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusConflict, utils.CodeConflict, errors.New("session was already updated"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	if target == models.PhaseEmployee {
		services.Notify(employee.Email, services.TemplateChangesRequested, map[string]interface{}{
			"changes": input.Changes,
		})
	} else {
		var manager models.User
		if err := hc.DB.First(&manager, employee.ManagerID).Error; err == nil {
			services.Notify(manager.Email, services.TemplateChangesRequested, map[string]interface{}{
				"changes":    input.Changes,
				"session_id": session.ID,
			})
		}
	}
	events.BroadcastOnboardingPhase(*session, employee.PropertyID)

	utils.RespondJSON(c, http.StatusOK, "Changes requested", session)
}

// IssueModule mints a narrow single-form token for an employee, e.g. to
// re-issue a W-4 long after onboarding closed.
func (hc *HRController) IssueModule(c *gin.Context) {
	userID, role := currentStaff(c)

	var input struct {
		EmployeeID uint   `json:"employee_id" binding:"required"`
		ModuleType string `json:"module_type" binding:"required"`
		TTLHours   int    `json:"ttl_hours"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}
	if !models.IsValidModuleType(input.ModuleType) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("unknown module type"))
		return
	}
	ttl := time.Duration(input.TTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	var employee models.Employee
	if err := hc.DB.First(&employee, input.EmployeeID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, errors.New("employee not found"))
		return
	}
	if !requirePropertyAccess(c, hc.DB, employee.PropertyID) {
		return
	}

	var (
		module models.EmployeeModule
		token  string
	)
	err := hc.DB.Transaction(func(tx *gorm.DB) error {
		module = models.EmployeeModule{
			EmployeeID: employee.ID,
			ModuleType: input.ModuleType,
			Token:      "pending",
			ExpiresAt:  time.Now().Add(ttl),
			IssuedBy:   userID,
		}
		if err := tx.Create(&module).Error; err != nil {
			return err
		}
		var exp time.Time
		var err error
		token, exp, err = utils.IssueModuleToken(employee.ID, module.ID, input.ModuleType, ttl)
		if err != nil {
			return err
		}
		module.Token = token
		module.ExpiresAt = exp
		if err := tx.Model(&module).Updates(map[string]interface{}{
			"token":      token,
			"expires_at": exp,
		}).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "module_issued:"+input.ModuleType, "employee_module", module.ID,
			nil, models.JSONMap{"employee_id": employee.ID, "module_type": input.ModuleType}, c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	formURL := fmt.Sprintf("%s/module?token=%s", hc.OnboardingBaseURL, token)
	services.Notify(employee.Email, services.TemplateModuleInvite, map[string]interface{}{
		"module_type": input.ModuleType,
		"form_url":    formURL,
	})

	utils.RespondJSON(c, http.StatusCreated, "Module issued", gin.H{
		"module":   module,
		"form_url": formURL,
	})
}

// ComplianceDeadlines lists deadlines in scope; managers see their
// properties, HR sees everything.
func (hc *HRController) ComplianceDeadlines(c *gin.Context) {
	userID, role := currentStaff(c)

	query := hc.DB.Model(&models.ComplianceDeadline{}).
		Joins("JOIN employees ON employees.id = compliance_deadlines.employee_id")
	if role == models.RoleManager {
		ids, err := ManagerPropertyIDs(hc.DB, userID)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
			return
		}
		query = query.Where("employees.property_id IN ?", ids)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("compliance_deadlines.status = ?", status)
	}

	var deadlines []models.ComplianceDeadline
	if err := query.Find(&deadlines).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Compliance deadlines", deadlines)
}

// AuditLog is HR-only read access to the trail.
func (hc *HRController) AuditLog(c *gin.Context) {
	query := hc.DB.Model(&models.AuditLogEntry{})
	if rt := c.Query("resource_type"); rt != "" {
		query = query.Where("resource_type = ?", rt)
	}
	if rid := c.Query("resource_id"); rid != "" {
		id, err := strconv.Atoi(rid)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, errors.New("invalid resource id"))
			return
		}
		query = query.Where("resource_id = ?", id)
	}
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	var entries []models.AuditLogEntry
	if err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Audit log", entries)
}

// DashboardStats -> counts for the HR overview.
func (hc *HRController) DashboardStats(c *gin.Context) {
	appCounts := map[string]int64{}
	for status := range map[models.ApplicationStatus]struct{}{
		models.ApplicationPending: {}, models.ApplicationApproved: {}, models.ApplicationRejected: {},
		models.ApplicationTalentPool: {}, models.ApplicationWithdrawn: {},
	} {
		var n int64
		hc.DB.Model(&models.JobApplication{}).Where("status = ?", status).Count(&n)
		appCounts[string(status)] = n
	}

	sessionCounts := map[string]int64{}
	for _, phase := range []models.OnboardingPhase{
		models.PhaseEmployee, models.PhaseManagerReview, models.PhaseHRApproval,
		models.PhaseApproved, models.PhaseRejected,
	} {
		var n int64
		hc.DB.Model(&models.OnboardingSession{}).Where("current_phase = ?", phase).Count(&n)
		sessionCounts[string(phase)] = n
	}

	var overdue int64
	hc.DB.Model(&models.ComplianceDeadline{}).Where("status = ?", models.DeadlineOverdue).Count(&overdue)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"applications":      appCounts,
		"sessions":          sessionCounts,
		"overdue_deadlines": overdue,
	})
}
