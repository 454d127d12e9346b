package models

import "time"

// AuditLogEntry is append-only. Rows are written in the same transaction
// as the state change they record and are never updated or deleted.
type AuditLogEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ActorID      uint      `gorm:"index" json:"actor_id"`
	ActorRole    string    `gorm:"type:varchar(20);not null" json:"actor_role"`
	Action       string    `gorm:"type:varchar(100);not null;index" json:"action"`
	ResourceType string    `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   uint      `gorm:"index" json:"resource_id"`
	Before       JSONMap   `gorm:"type:text" json:"before"`
	After        JSONMap   `gorm:"type:text" json:"after"`
	SourceIP     string    `gorm:"type:varchar(45)" json:"source_ip"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}
