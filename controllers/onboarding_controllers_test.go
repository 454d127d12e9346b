package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/controllers"
	"github.com/lumenhotels/onboarding-app/middlewares"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

func onboardingRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	oc := controllers.NewOnboardingController(db, services.NewDocumentService(t.TempDir()))

	r := newTestRouter()
	onboarding := r.Group("/onboarding", middlewares.OnboardingAuthMiddleware(db))
	onboarding.GET("/session", oc.GetSession)
	onboarding.POST("/step/:step_id/save", oc.SaveStep)
	onboarding.POST("/step/:step_id/complete", oc.CompleteStep)
	onboarding.POST("/submit", oc.SubmitEmployeePhase)

	modules := r.Group("/modules", middlewares.ModuleAuthMiddleware(db))
	modules.GET("/form", oc.GetModuleForm)
	modules.POST("/submit", oc.SubmitModuleForm)
	return r
}

// issueLiveToken mints a real capability token for the session and stores
// it the way approval does.
func issueLiveToken(t *testing.T, db *gorm.DB, session *models.OnboardingSession, ttl time.Duration) string {
	t.Helper()
	token, exp, err := utils.IssueSessionToken(session.EmployeeID, session.ID, ttl)
	assert.NoError(t, err)
	assert.NoError(t, db.Model(session).Updates(map[string]interface{}{
		"token":            token,
		"token_expires_at": exp,
	}).Error)
	return token
}

func TestGetSessionWithValidToken(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	_, session := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseEmployee)
	token := issueLiveToken(t, db, &session, time.Hour)

	r := onboardingRouter(t, db)
	w := performRequest(r, http.MethodGet, "/onboarding/session?token="+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := envelopeData(t, w)
	required, _ := data["required_steps"].([]interface{})
	missing, _ := data["missing_steps"].([]interface{})
	assert.Len(t, required, len(models.RequiredEmployeeSteps))
	assert.Len(t, missing, len(models.RequiredEmployeeSteps))
}

func TestOnboardingTokenFailuresLookIdentical(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	r := onboardingRouter(t, db)

	// Missing, garbage, expired, terminal-session and revoked tokens all
	// collapse to the same 401 so callers cannot distinguish link state.
	cases := map[string]string{}

	cases["missing"] = ""
	cases["garbage"] = "?token=not-a-token"

	_, expired := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseEmployee)
	cases["expired"] = "?token=" + issueLiveToken(t, db, &expired, -time.Hour)

	_, terminal := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseEmployee)
	terminalToken := issueLiveToken(t, db, &terminal, time.Hour)
	assert.NoError(t, db.Model(&terminal).Update("current_phase", models.PhaseApproved).Error)
	cases["terminal"] = "?token=" + terminalToken

	_, live := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseEmployee)
	revokedToken := issueLiveToken(t, db, &live, time.Hour)
	claims, err := utils.ValidateCapabilityToken(revokedToken)
	assert.NoError(t, err)
	services.RevokeToken(claims.ID, live.TokenExpiresAt)
	cases["revoked"] = "?token=" + revokedToken

	for name, query := range cases {
		w := performRequest(r, http.MethodGet, "/onboarding/session"+query, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		resp := decodeEnvelope(t, w)
		assert.Equal(t, utils.CodeTokenInvalid, resp["error_code"], name)
		assert.Equal(t, "link invalid or expired", resp["message"], name)
	}
}

func TestCompleteStepIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	_, session := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseEmployee)
	token := issueLiveToken(t, db, &session, time.Hour)

	r := onboardingRouter(t, db)
	body := gin.H{"data": gin.H{"first_name": "Dana", "last_name": "Reyes"}}

	w := performRequest(r, http.MethodPost, "/onboarding/step/personal_info/complete?token="+token, body)
	assert.Equal(t, http.StatusOK, w.Code)
	w = performRequest(r, http.MethodPost, "/onboarding/step/personal_info/complete?token="+token, body)
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.OnboardingSession
	db.First(&got, session.ID)
	assert.Equal(t, models.StringList{"personal_info"}, got.CompletedSteps)
	assert.Equal(t, 100/len(models.RequiredEmployeeSteps), got.PercentComplete)

	// Unknown step ids are rejected outright.
	w = performRequest(r, http.MethodPost, "/onboarding/step/favorite_color/complete?token="+token, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveStepDoesNotComplete(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	_, session := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseEmployee)
	token := issueLiveToken(t, db, &session, time.Hour)

	r := onboardingRouter(t, db)
	w := performRequest(r, http.MethodPost, "/onboarding/step/w4_form/save?token="+token, gin.H{
		"data": gin.H{"filing_status": "single"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.OnboardingSession
	db.First(&got, session.ID)
	assert.Empty(t, got.CompletedSteps)
	assert.Equal(t, 0, got.PercentComplete)
	assert.NotNil(t, got.StepData["w4_form"], "draft data must persist for resume")
}

func TestSubmitRequiresAllSteps(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	_, session := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseEmployee)
	token := issueLiveToken(t, db, &session, time.Hour)

	r := onboardingRouter(t, db)

	// One step done is not enough.
	w := performRequest(r, http.MethodPost, "/onboarding/step/personal_info/complete?token="+token, gin.H{
		"data": gin.H{"first_name": "Dana"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPost, "/onboarding/submit?token="+token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeIncompleteSteps, decodeEnvelope(t, w)["error_code"])

	var got models.OnboardingSession
	db.First(&got, session.ID)
	assert.Equal(t, models.PhaseEmployee, got.CurrentPhase)

	// Complete the rest and the submit goes through.
	for _, step := range models.RequiredEmployeeSteps[1:] {
		w = performRequest(r, http.MethodPost, "/onboarding/step/"+step+"/complete?token="+token, gin.H{
			"data":      gin.H{"ack": true},
			"signature": "Dana Reyes",
		})
		assert.Equal(t, http.StatusOK, w.Code, step)
	}

	w = performRequest(r, http.MethodPost, "/onboarding/submit?token="+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	db.First(&got, session.ID)
	assert.Equal(t, models.PhaseManagerReview, got.CurrentPhase)
	assert.Equal(t, 100, got.PercentComplete)
	assert.NotNil(t, got.FormArtifacts["i9_section1"], "federal forms get a stored artifact")
	assert.NotNil(t, got.FormArtifacts["w4_form"])

	// Submitting again from manager_review is rejected.
	w = performRequest(r, http.MethodPost, "/onboarding/submit?token="+token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeInvalidStatusTransition, decodeEnvelope(t, w)["error_code"])
}

func TestModuleFormLifecycle(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	employee, _ := seedEmployeeWithSession(t, db, property.ID, manager.ID, models.PhaseApproved)

	module := models.EmployeeModule{
		EmployeeID: employee.ID,
		ModuleType: "w4_update",
		Token:      "pending",
		ExpiresAt:  time.Now().Add(time.Hour),
		IssuedBy:   manager.ID,
	}
	assert.NoError(t, db.Create(&module).Error)
	token, exp, err := utils.IssueModuleToken(employee.ID, module.ID, module.ModuleType, time.Hour)
	assert.NoError(t, err)
	assert.NoError(t, db.Model(&module).Updates(map[string]interface{}{
		"token": token, "expires_at": exp,
	}).Error)

	r := onboardingRouter(t, db)

	w := performRequest(r, http.MethodGet, "/modules/form?token="+token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "w4_update", envelopeData(t, w)["module_type"])

	// A session token never opens a module endpoint.
	sessionToken, _, err := utils.IssueSessionToken(employee.ID, 1, time.Hour)
	assert.NoError(t, err)
	w = performRequest(r, http.MethodGet, "/modules/form?token="+sessionToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodPost, "/modules/submit?token="+token, gin.H{
		"data": gin.H{"filing_status": "married"},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.EmployeeModule
	db.First(&got, module.ID)
	assert.NotNil(t, got.CompletedAt)

	// Completion kills the token even though it has not expired.
	w = performRequest(r, http.MethodPost, "/modules/submit?token="+token, gin.H{
		"data": gin.H{"filing_status": "married"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
