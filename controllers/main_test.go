package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/database"
	"github.com/lumenhotels/onboarding-app/models"
)

// setupTestDB opens a private in-memory SQLite database with the full
// schema and post-migrate indexes applied.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Property{},
		&models.User{},
		&models.PropertyManagerAssignment{},
		&models.JobApplication{},
		&models.Employee{},
		&models.OnboardingSession{},
		&models.EmployeeModule{},
		&models.ComplianceDeadline{},
		&models.AuditLogEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := database.ExecuteIndexes(db); err != nil {
		t.Fatalf("failed to install indexes: %v", err)
	}
	return db
}

// asStaff injects an authenticated staff identity, standing in for the
// JWT middleware.
func asStaff(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func envelopeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	resp := decodeEnvelope(t, w)
	data, _ := resp["data"].(map[string]interface{})
	return data
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	assert.NoError(t, err)
	return d
}

// ---- seed helpers ----

func seedProperty(t *testing.T, db *gorm.DB, name string) models.Property {
	t.Helper()
	p := models.Property{Name: name, City: "Portland", State: "OR", IsActive: true}
	assert.NoError(t, db.Create(&p).Error)
	return p
}

func seedStaff(t *testing.T, db *gorm.DB, role, email string) models.User {
	t.Helper()
	u := models.User{Name: "Test " + role, Email: email, Password: "x", Role: role, IsActive: true}
	assert.NoError(t, db.Create(&u).Error)
	return u
}

func seedAssignment(t *testing.T, db *gorm.DB, propertyID, userID uint) {
	t.Helper()
	a := models.PropertyManagerAssignment{
		PropertyID: propertyID, UserID: userID, IsActive: true, AssignedAt: time.Now(),
	}
	assert.NoError(t, db.Create(&a).Error)
}

func seedApplication(t *testing.T, db *gorm.DB, propertyID uint, email, position string) models.JobApplication {
	t.Helper()
	app := models.JobApplication{
		PropertyID:     propertyID,
		Department:     "Front Office",
		Position:       position,
		ApplicantName:  "Applicant " + email,
		ApplicantEmail: email,
		Status:         models.ApplicationPending,
		AppliedAt:      time.Now(),
	}
	assert.NoError(t, db.Create(&app).Error)
	return app
}

func seedEmployeeWithSession(t *testing.T, db *gorm.DB, propertyID, managerID uint, phase models.OnboardingPhase) (models.Employee, models.OnboardingSession) {
	t.Helper()
	app := seedApplication(t, db, propertyID, fmt.Sprintf("%s@example.com", uuid.NewString()[:8]), "Front Desk")
	assert.NoError(t, db.Model(&app).Update("status", models.ApplicationApproved).Error)

	emp := models.Employee{
		ApplicationID:    app.ID,
		PropertyID:       propertyID,
		ManagerID:        managerID,
		Name:             app.ApplicantName,
		Email:            app.ApplicantEmail,
		Position:         app.Position,
		HireDate:         time.Now(),
		PayRate:          decimal.NewFromFloat(18.50),
		EmploymentStatus: models.EmploymentActive,
		OnboardingStatus: "in_progress",
	}
	assert.NoError(t, db.Create(&emp).Error)

	session := models.OnboardingSession{
		EmployeeID:     emp.ID,
		Token:          "seed",
		TokenExpiresAt: time.Now().Add(time.Hour),
		CurrentPhase:   phase,
		CompletedSteps: models.StringList{},
		StepData:       models.JSONMap{},
		FormArtifacts:  models.JSONMap{},
	}
	assert.NoError(t, db.Create(&session).Error)
	return emp, session
}
