package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/events"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/utils"
)

// ComplianceMonitor periodically flips pending deadlines past their due
// date to overdue and pushes a warning to dashboards. Advisory only: no
// workflow operation is blocked by an overdue deadline.
type ComplianceMonitor struct {
	DB       *gorm.DB
	StopChan chan struct{}
	Interval time.Duration
}

func NewComplianceMonitor(db *gorm.DB) *ComplianceMonitor {
	return &ComplianceMonitor{
		DB:       db,
		StopChan: make(chan struct{}),
		Interval: 15 * time.Minute,
	}
}

func (cm *ComplianceMonitor) Start() {
	go func() {
		ticker := time.NewTicker(cm.Interval)
		defer ticker.Stop()

		cm.CheckOverdue()
		for {
			select {
			case <-ticker.C:
				cm.CheckOverdue()
			case <-cm.StopChan:
				return
			}
		}
	}()
}

func (cm *ComplianceMonitor) Stop() {
	close(cm.StopChan)
}

// CheckOverdue marks newly-overdue deadlines and broadcasts each one.
func (cm *ComplianceMonitor) CheckOverdue() {
	var due []models.ComplianceDeadline
	now := time.Now()

	if err := cm.DB.Preload("Employee").
		Where("status = ? AND completed_date IS NULL AND due_date < ?",
			models.DeadlinePending, now).Find(&due).Error; err != nil {
		utils.ErrorLogger.Printf("compliance monitor query failed: %v", err)
		return
	}

	for _, d := range due {
		// Status precondition keeps concurrent monitors from double-firing.
		res := cm.DB.Model(&models.ComplianceDeadline{}).
			Where("id = ? AND status = ?", d.ID, models.DeadlinePending).
			Update("status", models.DeadlineOverdue)
		if res.Error != nil {
			utils.ErrorLogger.Printf("compliance monitor update failed for deadline %d: %v", d.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		d.Status = models.DeadlineOverdue
		utils.InfoLogger.Printf("compliance: %s overdue for employee %d (due %s)",
			d.RequirementType, d.EmployeeID, d.DueDate.Format("2006-01-02"))
		events.BroadcastComplianceOverdue(d, d.Employee.PropertyID)
	}
}
