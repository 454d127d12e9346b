package database

import (
	"gorm.io/gorm"
)

// ExecuteIndexes installs constraints AutoMigrate cannot express. Runs
// after migration on every boot; statements are idempotent.
func ExecuteIndexes(db *gorm.DB) error {
	dialect := db.Dialector.Name()

	switch dialect {
	case "postgres", "sqlite":
		// One live pending application per applicant/property/position.
		// Intake also checks this in code; the index closes the race
		// between two concurrent submissions.
		if err := db.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS idx_one_pending_application
			ON job_applications (applicant_email, property_id, position)
			WHERE status = 'pending'
		`).Error; err != nil {
			return err
		}
		// One active assignment per (property, manager) pair.
		if err := db.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_assignment
			ON property_manager_assignments (property_id, user_id)
			WHERE is_active
		`).Error; err != nil {
			return err
		}
	default:
		// MySQL has no partial indexes; the duplicate-pending rule is
		// enforced by the intake check only. TODO: emulate with a
		// generated column once the MySQL floor moves to 8.0.13+.
	}

	return nil
}
