package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/events"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

// OnboardingController serves the employee-facing, token-authenticated
// wizard. The middleware has already validated the capability token and
// loaded the session into the context.
type OnboardingController struct {
	DB   *gorm.DB
	Docs *services.DocumentService
}

func NewOnboardingController(db *gorm.DB, docs *services.DocumentService) *OnboardingController {
	if docs == nil {
		docs = services.NewDocumentService("")
	}
	return &OnboardingController{DB: db, Docs: docs}
}

func sessionFromContext(c *gin.Context) *models.OnboardingSession {
	v, _ := c.Get("session")
	session, _ := v.(*models.OnboardingSession)
	return session
}

// GetSession -> welcome payload for the wizard.
func (oc *OnboardingController) GetSession(c *gin.Context) {
	session := sessionFromContext(c)

	var employee models.Employee
	if err := oc.DB.Preload("Property").First(&employee, session.EmployeeID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Onboarding session", gin.H{
		"session": session,
		"employee": gin.H{
			"name":      employee.Name,
			"position":  employee.Position,
			"hire_date": employee.HireDate.Format("2006-01-02"),
			"property":  employee.Property.Name,
		},
		"required_steps": models.RequiredEmployeeSteps,
		"missing_steps":  session.MissingSteps(),
	})
}

// SaveStep persists partial step data without marking the step complete,
// so an employee can stop mid-form and resume later.
func (oc *OnboardingController) SaveStep(c *gin.Context) {
	session := sessionFromContext(c)
	stepID := c.Param("step_id")
	if !models.IsRequiredEmployeeStep(stepID) {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, fmt.Errorf("unknown step %s", stepID))
		return
	}

	var input struct {
		Data models.JSONMap `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	if session.StepData == nil {
		session.StepData = models.JSONMap{}
	}
	session.StepData[stepID] = input.Data

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(session).Update("step_data", session.StepData).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, session.EmployeeID, "employee", "step_saved:"+stepID,
			"onboarding_session", session.ID, nil, nil, c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Step saved", gin.H{
		"step_id":          stepID,
		"percent_complete": session.PercentComplete,
	})
}

// CompleteStep marks a step done. Idempotent per step id: re-completion
// overwrites the data but the step appears in completed_steps once.
func (oc *OnboardingController) CompleteStep(c *gin.Context) {
	session := sessionFromContext(c)
	stepID := c.Param("step_id")
	if !models.IsRequiredEmployeeStep(stepID) {
		utils.RespondError(c, http.StatusNotFound, utils.CodeNotFound, fmt.Errorf("unknown step %s", stepID))
		return
	}

	var input struct {
		Data      models.JSONMap `json:"data" binding:"required"`
		Signature string         `json:"signature"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	before := services.SessionSnapshot(session)

	if session.StepData == nil {
		session.StepData = models.JSONMap{}
	}
	session.StepData[stepID] = input.Data
	if input.Signature != "" {
		session.StepData[stepID+"_signature"] = input.Signature
	}
	if !session.CompletedSteps.Contains(stepID) {
		session.CompletedSteps = append(session.CompletedSteps, stepID)
	}
	session.RecomputeProgress()

	// Federal forms get a stored PDF artifact. The artifact is derived
	// data: a render failure is logged, not surfaced.
	if services.HasFormArtifact(stepID) {
		if ref, err := oc.Docs.GenerateFormArtifact(stepID, session.EmployeeID, input.Data); err != nil {
			utils.ErrorLogger.Printf("artifact render for %s failed: %v", stepID, err)
		} else {
			if session.FormArtifacts == nil {
				session.FormArtifacts = models.JSONMap{}
			}
			session.FormArtifacts[stepID] = ref
		}
	}

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(session).Updates(map[string]interface{}{
			"step_data":        session.StepData,
			"completed_steps":  session.CompletedSteps,
			"percent_complete": session.PercentComplete,
			"form_artifacts":   session.FormArtifacts,
		}).Error; err != nil {
			return err
		}
		return services.RecordAudit(tx, session.EmployeeID, "employee", "step_completed:"+stepID,
			"onboarding_session", session.ID, before, services.SessionSnapshot(session), c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Step completed", gin.H{
		"step_id":          stepID,
		"completed_steps":  session.CompletedSteps,
		"percent_complete": session.PercentComplete,
	})
}

// SubmitEmployeePhase moves the session to manager review once every
// required step is complete.
func (oc *OnboardingController) SubmitEmployeePhase(c *gin.Context) {
	session := sessionFromContext(c)

	if session.CurrentPhase != models.PhaseEmployee {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition,
			fmt.Errorf("session is in phase %s", session.CurrentPhase))
		return
	}
	if missing := session.MissingSteps(); len(missing) > 0 {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeIncompleteSteps,
			fmt.Errorf("%w: %v", ErrIncompleteSteps, missing))
		return
	}
	if !session.CurrentPhase.CanTransitionTo(models.PhaseManagerReview) {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeInvalidStatusTransition, ErrInvalidTransition)
		return
	}

	before := services.SessionSnapshot(session)
	session.CurrentPhase = models.PhaseManagerReview

	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		// Guard on the phase so a concurrent decision on the same
		// session cannot be overwritten by a stale submit.
		res := tx.Model(&models.OnboardingSession{}).
			Where("id = ? AND current_phase = ?", session.ID, models.PhaseEmployee).
			Update("current_phase", session.CurrentPhase)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return services.RecordAudit(tx, session.EmployeeID, "employee", "employee_phase_submitted",
			"onboarding_session", session.ID, before, services.SessionSnapshot(session), c.ClientIP())
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			utils.RespondError(c, http.StatusConflict, utils.CodeConflict, errors.New("session was already updated"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	// Let the assigned manager know a review is waiting.
	var employee models.Employee
	if err := oc.DB.Preload("Manager").First(&employee, session.EmployeeID).Error; err == nil {
		services.Notify(employee.Manager.Email, services.TemplateManagerReview, map[string]interface{}{
			"employee":   employee.Name,
			"session_id": session.ID,
		})
		events.BroadcastOnboardingPhase(*session, employee.PropertyID)
	}

	utils.RespondJSON(c, http.StatusOK, "Onboarding submitted for manager review", session)
}

// GetModuleForm -> module token holder fetches the single form it opens.
func (oc *OnboardingController) GetModuleForm(c *gin.Context) {
	v, _ := c.Get("module")
	module, _ := v.(*models.EmployeeModule)
	if module == nil {
		utils.RespondError(c, http.StatusUnauthorized, utils.CodeTokenInvalid, errors.New("link invalid or expired"))
		return
	}

	var employee models.Employee
	if err := oc.DB.First(&employee, module.EmployeeID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, utils.CodeInternal, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Module form", gin.H{
		"module_type": module.ModuleType,
		"employee":    employee.Name,
		"expires_at":  module.ExpiresAt,
	})
}

// SubmitModuleForm completes a single-form module. Completion makes the
// token dead even before its expiry.
func (oc *OnboardingController) SubmitModuleForm(c *gin.Context) {
	v, _ := c.Get("module")
	module, _ := v.(*models.EmployeeModule)
	claimsV, _ := c.Get("claims")
	claims, _ := claimsV.(*utils.OnboardingClaims)
	if module == nil || claims == nil {
		utils.RespondError(c, http.StatusUnauthorized, utils.CodeTokenInvalid, errors.New("link invalid or expired"))
		return
	}

	var input struct {
		Data models.JSONMap `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, utils.CodeValidation, err)
		return
	}

	now := time.Now()
	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		// Guard on completed_at so a double submit races to a single win.
		res := tx.Model(&models.EmployeeModule{}).
			Where("id = ? AND completed_at IS NULL", module.ID).
			Updates(map[string]interface{}{
				"submitted_data": input.Data,
				"completed_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("module already completed")
		}
		return services.RecordAudit(tx, module.EmployeeID, "employee", "module_completed:"+module.ModuleType,
			"employee_module", module.ID, nil, models.JSONMap{"module_type": module.ModuleType}, c.ClientIP())
	})
	if err != nil {
		utils.RespondError(c, http.StatusConflict, utils.CodeConflict, err)
		return
	}

	services.RevokeToken(claims.ID, module.ExpiresAt)

	utils.RespondJSON(c, http.StatusOK, "Form submitted", gin.H{
		"module_type":  module.ModuleType,
		"completed_at": now,
	})
}
