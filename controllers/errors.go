package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

var (
	ErrNoPermission        = errors.New("access denied")
	ErrReasonRequired      = errors.New("a reason is required")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrDuplicatePending    = errors.New("a pending application already exists for this position")
	ErrIncompleteSteps     = errors.New("required onboarding steps are incomplete")
	ErrInvalidDocuments    = errors.New("provide exactly one List A document, or one List B and one List C document")
	ErrSection2NotComplete = errors.New("I-9 Section 2 must be completed before approval")
)

// currentStaff pulls the authenticated staff identity set by the auth
// middleware.
func currentStaff(c *gin.Context) (uint, string) {
	userIDInterface, _ := c.Get("user_id")
	roleInterface, _ := c.Get("role")
	userID, _ := userIDInterface.(uint)
	role, _ := roleInterface.(string)
	return userID, role
}
