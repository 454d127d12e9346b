package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/controllers"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/utils"
)

func authRouter(db *gorm.DB) *gin.Engine {
	ac := controllers.NewAuthController(db)

	r := newTestRouter()
	r.POST("/register", ac.Register)
	r.POST("/login", ac.Login)
	return r
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	r := authRouter(db)

	w := performRequest(r, http.MethodPost, "/register", gin.H{
		"name": "Pat Lee", "email": "Pat@Example.com", "password": "s3cret-pass", "role": models.RoleManager,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Emails are stored lowercase; login is case-insensitive.
	w = performRequest(r, http.MethodPost, "/login", gin.H{
		"email": "pat@example.com", "password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := envelopeData(t, w)
	assert.Equal(t, models.RoleManager, data["role"])

	token, _ := data["token"].(string)
	claims, err := utils.ParseStaffToken(token)
	assert.NoError(t, err)
	assert.Equal(t, models.RoleManager, claims.Role)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	db := setupTestDB(t)
	r := authRouter(db)

	w := performRequest(r, http.MethodPost, "/register", gin.H{
		"name": "Pat Lee", "email": "pat@example.com", "password": "s3cret-pass", "role": "employee",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	r := authRouter(db)

	w := performRequest(r, http.MethodPost, "/register", gin.H{
		"name": "Pat Lee", "email": "pat@example.com", "password": "s3cret-pass", "role": models.RoleHR,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(r, http.MethodPost, "/login", gin.H{
		"email": "pat@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, utils.CodeUnauthorized, decodeEnvelope(t, w)["error_code"])
}
