package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChangeAction string

const (
	ChangeCreate ChangeAction = "create"
	ChangeUpdate ChangeAction = "update"
	ChangeDelete ChangeAction = "delete"
)

type ChangeStatus string

const (
	ChangePending  ChangeStatus = "pending"
	ChangeApproved ChangeStatus = "approved"
	ChangeRejected ChangeStatus = "rejected"
)

// PendingChange stages a mutation requested by an actor whose edits
// need a reviewer. Data holds the proposed column values, OldData the
// snapshot taken at enqueue time.
type PendingChange struct {
	gorm.Model
	RequestedByID uint `gorm:"not null"`
	RequestedBy   User

	TenantID uuid.UUID `gorm:"type:uuid;index;not null"`

	Action    ChangeAction `gorm:"type:varchar(20);not null"`
	ModelName string       `gorm:"size:100;not null;index:idx_change_subject"`
	ObjectID  string       `gorm:"size:255;index:idx_change_subject"`

	Data    JSONMap `gorm:"type:jsonb"`
	OldData JSONMap `gorm:"type:jsonb"`

	Status       ChangeStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReviewedByID *uint
	ReviewedBy   *User
	ReviewedAt   *time.Time
	ReviewNotes  string `gorm:"type:text"`
}
