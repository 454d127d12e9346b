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

// ManagerController covers the manager review phase: I-9 Section 2,
// approval to HR, and change requests back to the employee.
type ManagerController struct {
	DB   *gorm.DB
	Docs *services.DocumentService
}

func NewManagerController(db *gorm.DB, docs *services.DocumentService) *ManagerController {
	if docs == nil {
		docs = services.NewDocumentService("")
	}
	return &ManagerController{DB: db, Docs: docs}
}

// loadScopedSession fetches a session plus its employee and enforces the
// property scope. Responds on failure and returns ok=false.
func (mc *ManagerController) loadScopedSession(c *gin.Context) (*models.OnboardingSession, *models.Employee, bool) {
	id, _ := strconv.Atoi(c.Param("session_id"))

	var session models.OnboardingSession
	if err := mc.DB.First(&session, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, err)
		return nil, nil, false
	}
	var employee models.Employee
	if err := mc.DB.First(&employee, session.EmployeeID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return nil, nil, false
	}
	if !requirePropertyAccess(c, mc.DB, employee.PropertyID) {
		return nil, nil, false
	}
	return &session, &employee, true
}

// PendingReviews lists sessions awaiting manager review in scope.
func (mc *ManagerController) PendingReviews(c *gin.Context) {
	userID, role := currentStaff(c)

	query := mc.DB.Model(&models.OnboardingSession{}).
		Joins("JOIN employees ON employees.id = onboarding_sessions.employee_id").
		Where("onboarding_sessions.current_phase = ?", models.PhaseManagerReview)
	if role == models.RoleManager {
		ids, err := ManagerPropertyIDs(mc.DB, userID)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
			return
		}
		query = query.Where("employees.property_id IN ?", ids)
	}

	var sessions []models.OnboardingSession
	if err := query.Find(&sessions).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sessions pending manager review", sessions)
}

// CompleteI9Section2 records the employer's document verification. The
// federal rule: exactly one List A document, or one List B plus one
// List C document.
func (mc *ManagerController) CompleteI9Section2(c *gin.Context) {
	session, employee, ok := mc.loadScopedSession(c)
	if !ok {
		return
	}
	userID, role := currentStaff(c)

	if session.CurrentPhase != models.PhaseManagerReview {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("session is in phase %s", session.CurrentPhase))
		return
	}

	var input struct {
		ListADocument models.JSONMap `json:"list_a_document"`
		ListBDocument models.JSONMap `json:"list_b_document"`
		ListCDocument models.JSONMap `json:"list_c_document"`
		Signature     string         `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	hasA := len(input.ListADocument) > 0
	hasB := len(input.ListBDocument) > 0
	hasC := len(input.ListCDocument) > 0
	if !((hasA && !hasB && !hasC) || (!hasA && hasB && hasC)) {
		utils.RespondError(c, http.StatusUnprocessableEntity, utils.CodeInvalidDocuments, ErrInvalidDocuments)
		return
	}

	docs := models.JSONMap{"signature": input.Signature, "verified_by": userID}
	if hasA {
		docs["list_a_document"] = input.ListADocument
	} else {
		docs["list_b_document"] = input.ListBDocument
		docs["list_c_document"] = input.ListCDocument
	}

	before := services.SessionSnapshot(session)
	session.I9Section2Done = true
	if session.StepData == nil {
		session.StepData = models.JSONMap{}
	}
	session.StepData["i9_section2"] = docs

	if ref, err := mc.Docs.GenerateFormArtifact("i9_section2", employee.ID, docs); err != nil {
		utils.ErrorLogger.Printf("artifact render for i9_section2 failed: %v", err)
	} else {
		if session.FormArtifacts == nil {
			session.FormArtifacts = models.JSONMap{}
		}
		session.FormArtifacts["i9_section2"] = ref
	}

	now := time.Now()
	err := mc.DB.Transaction(func(tx *gorm.DB) error {
		// Phase-guarded so a concurrent decision (reject, request
		// changes) cannot be written over with stale review data.
		res := tx.Model(&models.OnboardingSession{}).
			Where("id = ? AND current_phase = ?", session.ID, models.PhaseManagerReview).
			Updates(map[string]interface{}{
				"i9_section2_done": true,
				"step_data":        session.StepData,
				"form_artifacts":   session.FormArtifacts,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		// Completing Section 2 satisfies the 3-business-day deadline.
		if err := tx.Model(&models.ComplianceDeadline{}).
			Where("employee_id = ? AND requirement_type = ? AND completed_date IS NULL",
				employee.ID, models.RequirementI9Section2).
			Updates(map[string]interface{}{
				"completed_date": now,
				"status":         models.DeadlineCompleted,
			}).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, userID, role, "i9_section2_completed", "onboarding_session", session.ID,
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

	utils.RespondJSON(c, http.StatusOK, "I-9 Section 2 completed", session)
}

// ManagerApprove advances the session to HR approval. Section 2 must be
// on file first.
func (mc *ManagerController) ManagerApprove(c *gin.Context) {
	session, employee, ok := mc.loadScopedSession(c)
	if !ok {
		return
	}
	userID, role := currentStaff(c)

	var input struct {
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	if session.CurrentPhase != models.PhaseManagerReview {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("session is in phase %s", session.CurrentPhase))
		return
	}
	if !session.I9Section2Done {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, ErrSection2NotComplete)
		return
	}
	if !session.CurrentPhase.CanTransitionTo(models.PhaseHRApproval) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, ErrInvalidTransition)
		return
	}

	before := services.SessionSnapshot(session)
	now := time.Now()
	session.CurrentPhase = models.PhaseHRApproval
	session.ManagerReviewedBy = &userID
	session.ManagerReviewedAt = &now

	err := mc.DB.Transaction(func(tx *gorm.DB) error {
		// Phase-guarded write: if another decision landed first, the
		// update matches zero rows and this approval loses cleanly.
		res := tx.Model(&models.OnboardingSession{}).
			Where("id = ? AND current_phase = ?", session.ID, models.PhaseManagerReview).
			Updates(map[string]interface{}{
				"current_phase":       session.CurrentPhase,
				"manager_reviewed_by": userID,
				"manager_reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return services.RecordAudit(tx, userID, role, "manager_approved", "onboarding_session", session.ID,
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

	// Every active HR user gets a review notification.
	var hrEmails []string
	mc.DB.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleHR, true).Pluck("email", &hrEmails)
	for _, email := range hrEmails {
		services.Notify(email, services.TemplateHRReview, map[string]interface{}{"session_id": session.ID})
	}
	events.BroadcastOnboardingPhase(*session, employee.PropertyID)

	utils.RespondJSON(c, http.StatusOK, "Session approved for HR review", session)
}

// ManagerRequestChanges kicks the session back to the employee with the
// list of forms to fix. Completed steps stay: this is partial rework.
func (mc *ManagerController) ManagerRequestChanges(c *gin.Context) {
	session, employee, ok := mc.loadScopedSession(c)
	if !ok {
		return
	}
	userID, role := currentStaff(c)

	var input struct {
		Changes []struct {
			Form   string `json:"form" binding:"required"`
			Reason string `json:"reason" binding:"required"`
		} `json:"changes" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	if session.CurrentPhase != models.PhaseManagerReview {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("session is in phase %s", session.CurrentPhase))
		return
	}
	if !session.CurrentPhase.CanTransitionTo(models.PhaseEmployee) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, ErrInvalidTransition)
		return
	}

	before := services.SessionSnapshot(session)
	now := time.Now().Format(time.RFC3339)
	for _, ch := range input.Changes {
		session.RequestedChanges = append(session.RequestedChanges, models.ChangeRequest{
			Form:        ch.Form,
			Reason:      ch.Reason,
			RequestedBy: userID,
			RequestedAt: now,
		})
	}
	session.CurrentPhase = models.PhaseEmployee

	err := mc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OnboardingSession{}).
			Where("id = ? AND current_phase = ?", session.ID, models.PhaseManagerReview).
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
		return services.RecordAudit(tx, userID, role, "manager_requested_changes", "onboarding_session", session.ID,
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

	services.Notify(employee.Email, services.TemplateChangesRequested, map[string]interface{}{
		"changes": input.Changes,
	})
	events.BroadcastOnboardingPhase(*session, employee.PropertyID)

	utils.RespondJSON(c, http.StatusOK, "Changes requested", session)
}
