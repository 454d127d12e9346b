package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/controllers"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/utils"
)

func applicationRouter(db *gorm.DB, staffID uint, role string) *gin.Engine {
	ac := controllers.NewApplicationController(db, "https://onboard.example.com/start")

	r := newTestRouter()
	r.POST("/apply/:property_id", ac.SubmitApplication)
	r.POST("/applications/:application_id/withdraw", ac.WithdrawApplication)

	staff := r.Group("/staff", asStaff(staffID, role))
	staff.GET("/applications", ac.GetApplications)
	staff.GET("/applications/:application_id", ac.GetApplicationByID)
	staff.POST("/applications/:application_id/approve", ac.ApproveApplication)
	staff.POST("/applications/:application_id/reject", ac.RejectApplication)
	staff.POST("/applications/:application_id/talent-pool", ac.TalentPoolApplication)
	staff.POST("/applications/:application_id/reactivate", ac.ReactivateApplication)
	staff.POST("/applications/bulk-status-update", ac.BulkStatusUpdate)
	return r
}

func TestSubmitApplicationRejectsDuplicatePending(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	r := applicationRouter(db, 0, "")

	body := gin.H{
		"department": "Front Office",
		"position":   "Front Desk Agent",
		"name":       "Dana Reyes",
		"email":      "dana@example.com",
	}

	w := performRequest(r, http.MethodPost, fmt.Sprintf("/apply/%d", property.ID), body)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Same applicant, property and position while the first is pending.
	w = performRequest(r, http.MethodPost, fmt.Sprintf("/apply/%d", property.ID), body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.CodeDuplicatePending, decodeEnvelope(t, w)["error_code"])

	// A different position at the same property is a separate opening.
	body["position"] = "Night Auditor"
	w = performRequest(r, http.MethodPost, fmt.Sprintf("/apply/%d", property.ID), body)
	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	db.Model(&models.JobApplication{}).Where("applicant_email = ?", "dana@example.com").Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestSubmitApplicationAbortsWhenAuditFails(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	r := applicationRouter(db, 0, "")

	// With the audit table gone the trail write fails, and the
	// application insert must roll back with it.
	assert.NoError(t, db.Migrator().DropTable(&models.AuditLogEntry{}))

	w := performRequest(r, http.MethodPost, fmt.Sprintf("/apply/%d", property.ID), gin.H{
		"department": "Front Office",
		"position":   "Front Desk Agent",
		"name":       "Dana Reyes",
		"email":      "dana@example.com",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var count int64
	db.Model(&models.JobApplication{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestSubmitApplicationInactiveProperty(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Closed Inn")
	assert.NoError(t, db.Model(&property).Update("is_active", false).Error)
	r := applicationRouter(db, 0, "")

	w := performRequest(r, http.MethodPost, fmt.Sprintf("/apply/%d", property.ID), gin.H{
		"department": "Housekeeping", "position": "Room Attendant",
		"name": "Sam Ortiz", "email": "sam@example.com",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApproveApplicationHiresAndSweepsSiblings(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	seedAssignment(t, db, property.ID, manager.ID)

	winner := seedApplication(t, db, property.ID, "winner@example.com", "Front Desk Agent")
	sibling := seedApplication(t, db, property.ID, "sibling@example.com", "Front Desk Agent")
	other := seedApplication(t, db, property.ID, "other@example.com", "Night Auditor")

	r := applicationRouter(db, manager.ID, models.RoleManager)
	w := performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/approve", winner.ID), gin.H{
		"hire_date": "2026-09-01",
		"pay_rate":  "18.50",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)

	// Winner approved, sibling for the same opening swept to the talent
	// pool, unrelated opening untouched.
	var gotWinner, gotSibling, gotOther models.JobApplication
	db.First(&gotWinner, winner.ID)
	assert.Equal(t, models.ApplicationApproved, gotWinner.Status)
	db.First(&gotSibling, sibling.ID)
	assert.Equal(t, models.ApplicationTalentPool, gotSibling.Status)
	assert.NotNil(t, gotSibling.TalentPoolDate)
	db.First(&gotOther, other.ID)
	assert.Equal(t, models.ApplicationPending, gotOther.Status)

	// Employee and session created in the same transaction.
	var employee models.Employee
	assert.NoError(t, db.Where("application_id = ?", winner.ID).First(&employee).Error)
	assert.Equal(t, "winner@example.com", employee.Email)
	assert.Equal(t, manager.ID, employee.ManagerID)
	assert.True(t, employee.PayRate.Equal(decimalFromString(t, "18.50")))

	var session models.OnboardingSession
	assert.NoError(t, db.Where("employee_id = ?", employee.ID).First(&session).Error)
	assert.Equal(t, models.PhaseEmployee, session.CurrentPhase)

	// The onboarding link carries a working capability token bound to the
	// new session.
	url, _ := data["onboarding_url"].(string)
	parts := strings.SplitN(url, "token=", 2)
	assert.Len(t, parts, 2)
	claims, err := utils.ValidateCapabilityToken(parts[1])
	assert.NoError(t, err)
	assert.Equal(t, employee.ID, claims.EmployeeID)
	assert.Equal(t, session.ID, claims.SessionID)

	// I-9 Section 2 clock starts at hire: 3 business days.
	var deadline models.ComplianceDeadline
	assert.NoError(t, db.Where("employee_id = ?", employee.ID).First(&deadline).Error)
	assert.Equal(t, models.RequirementI9Section2, deadline.RequirementType)
	assert.Equal(t, models.DeadlinePending, deadline.Status)
	assert.Equal(t, "2026-09-04", deadline.DueDate.Format("2006-01-02"))

	// Audit rows for the approval and every swept sibling.
	var audits int64
	db.Model(&models.AuditLogEntry{}).Where("action = ?", "application_approved").Count(&audits)
	assert.EqualValues(t, 1, audits)
	db.Model(&models.AuditLogEntry{}).Where("action = ?", "application_talent_pooled").Count(&audits)
	assert.EqualValues(t, 1, audits)
}

func TestApproveApplicationTwiceFails(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	seedAssignment(t, db, property.ID, manager.ID)
	app := seedApplication(t, db, property.ID, "a@example.com", "Front Desk Agent")

	r := applicationRouter(db, manager.ID, models.RoleManager)
	body := gin.H{"hire_date": "2026-09-01", "pay_rate": "18.50"}

	w := performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/approve", app.ID), body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/approve", app.ID), body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeInvalidStatusTransition, decodeEnvelope(t, w)["error_code"])

	var employees int64
	db.Model(&models.Employee{}).Count(&employees)
	assert.EqualValues(t, 1, employees, "double approval must not double-hire")
}

func TestManagerCannotTouchOtherProperty(t *testing.T) {
	db := setupTestDB(t)
	mine := seedProperty(t, db, "Harborview")
	theirs := seedProperty(t, db, "Summit Lodge")
	manager := seedStaff(t, db, models.RoleManager, "mgr@example.com")
	seedAssignment(t, db, mine.ID, manager.ID)
	app := seedApplication(t, db, theirs.ID, "a@example.com", "Front Desk Agent")

	r := applicationRouter(db, manager.ID, models.RoleManager)
	w := performRequest(r, http.MethodGet, fmt.Sprintf("/staff/applications/%d", app.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, utils.CodePropertyAccessDenied, decodeEnvelope(t, w)["error_code"])

	// The scoped listing silently excludes the other property.
	w = performRequest(r, http.MethodGet, "/staff/applications", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "a@example.com")

	// Asking for the other property explicitly is an audited denial.
	w = performRequest(r, http.MethodGet, fmt.Sprintf("/staff/applications?property_id=%d", theirs.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var denials int64
	db.Model(&models.AuditLogEntry{}).Where("action = ?", "property_access_denied").Count(&denials)
	assert.True(t, denials >= 1)
}

func TestRejectApplicationRequiresReason(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	hr := seedStaff(t, db, models.RoleHR, "hr@example.com")
	app := seedApplication(t, db, property.ID, "a@example.com", "Front Desk Agent")

	r := applicationRouter(db, hr.ID, models.RoleHR)

	w := performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/reject", app.ID), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/reject", app.ID), gin.H{
		"reason": "position filled internally",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.JobApplication
	db.First(&got, app.ID)
	assert.Equal(t, models.ApplicationRejected, got.Status)
	assert.Equal(t, "position filled internally", got.RejectionReason)
}

func TestReactivateFromTalentPool(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	hr := seedStaff(t, db, models.RoleHR, "hr@example.com")
	app := seedApplication(t, db, property.ID, "a@example.com", "Front Desk Agent")

	r := applicationRouter(db, hr.ID, models.RoleHR)

	w := performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/talent-pool", app.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/reactivate", app.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.JobApplication
	db.First(&got, app.ID)
	assert.Equal(t, models.ApplicationPending, got.Status)
	assert.Nil(t, got.TalentPoolDate)

	// Reactivating twice is an illegal pending -> pending transition.
	w = performRequest(r, http.MethodPost, fmt.Sprintf("/staff/applications/%d/reactivate", app.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.CodeInvalidStatusTransition, decodeEnvelope(t, w)["error_code"])
}

func TestWithdrawApplicationMatchesEmail(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	app := seedApplication(t, db, property.ID, "a@example.com", "Front Desk Agent")
	r := applicationRouter(db, 0, "")

	w := performRequest(r, http.MethodPost, fmt.Sprintf("/applications/%d/withdraw", app.ID), gin.H{
		"email": "wrong@example.com",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, http.MethodPost, fmt.Sprintf("/applications/%d/withdraw", app.ID), gin.H{
		"email": "a@example.com",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.JobApplication
	db.First(&got, app.ID)
	assert.Equal(t, models.ApplicationWithdrawn, got.Status)
}

func TestBulkStatusUpdate(t *testing.T) {
	db := setupTestDB(t)
	property := seedProperty(t, db, "Harborview")
	hr := seedStaff(t, db, models.RoleHR, "hr@example.com")
	a1 := seedApplication(t, db, property.ID, "a1@example.com", "Front Desk Agent")
	a2 := seedApplication(t, db, property.ID, "a2@example.com", "Front Desk Agent")

	r := applicationRouter(db, hr.ID, models.RoleHR)

	// Approval never happens in bulk.
	w := performRequest(r, http.MethodPost, "/staff/applications/bulk-status-update", gin.H{
		"application_ids": []uint{a1.ID},
		"new_status":      "approved",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Mixed batch: two real ids plus one that does not exist.
	w = performRequest(r, http.MethodPost, "/staff/applications/bulk-status-update", gin.H{
		"application_ids": []uint{a1.ID, a2.ID, 9999},
		"new_status":      "talent_pool",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Len(t, data["updated"], 2)
	assert.Len(t, data["failed"], 1)

	var count int64
	db.Model(&models.JobApplication{}).Where("status = ?", models.ApplicationTalentPool).Count(&count)
	assert.EqualValues(t, 2, count)
}
