package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/models"
)

// RecordAudit appends one audit entry. Callers pass their open transaction
// so the entry commits with the state change it records; an error here must
// abort the whole transition, audit rows are a compliance record and not
// best-effort.
func RecordAudit(tx *gorm.DB, actorID uint, actorRole, action, resourceType string, resourceID uint, before, after models.JSONMap, sourceIP string) error {
	entry := models.AuditLogEntry{
		ActorID:      actorID,
		ActorRole:    actorRole,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Before:       before,
		After:        after,
		SourceIP:     sourceIP,
		CreatedAt:    time.Now(),
	}
	return tx.Create(&entry).Error
}

// ApplicationSnapshot captures the audit-relevant fields of an application.
func ApplicationSnapshot(app *models.JobApplication) models.JSONMap {
	if app == nil {
		return nil
	}
	return models.JSONMap{
		"status":           string(app.Status),
		"property_id":      app.PropertyID,
		"position":         app.Position,
		"rejection_reason": app.RejectionReason,
	}
}

// SessionSnapshot captures the audit-relevant fields of a session.
func SessionSnapshot(s *models.OnboardingSession) models.JSONMap {
	if s == nil {
		return nil
	}
	return models.JSONMap{
		"current_phase":    string(s.CurrentPhase),
		"percent_complete": s.PercentComplete,
		"completed_steps":  len(s.CompletedSteps),
		"i9_section2_done": s.I9Section2Done,
	}
}
