package models

import "time"

// Audit actions beyond the workflow ones.
const (
	AuditLogin  = "login"
	AuditLogout = "logout"
	AuditCreate = "create"
	AuditEdit   = "edit"
	AuditDelete = "delete"
)

// AuditLog is append-only: nothing in the system ever updates or
// deletes a row. Deliberately no gorm.Model so there is no soft-delete
// column to misuse.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"index"`

	UserID *uint
	User   *User

	Action string `gorm:"size:50;not null"`

	ModelName string `gorm:"size:100;not null;index:idx_audit_subject"`
	ObjectID  string `gorm:"size:255;index:idx_audit_subject"`

	Description string    `gorm:"type:text"`
	Changes     ChangeSet `gorm:"type:jsonb"`
	IPAddress   string    `gorm:"size:45"`

	StageID *uint
	Stage   *WorkflowStage
}
