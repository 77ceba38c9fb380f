package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Variation is a price change order against a project's contract. Its
// VAT-inclusive net amount is folded into the contract's
// total_project_value on every create, update and delete, which in
// turn moves the denominator of the payment-derived status.
type Variation struct {
	gorm.Model
	TenantID *uuid.UUID `gorm:"type:uuid;index"`

	ProjectID uint `gorm:"not null;index"`
	Project   *Project

	Number      string `gorm:"size:100;index"`
	Description string `gorm:"type:text"`

	NetAmount float64 `gorm:"type:numeric(14,2);not null"`

	ApprovalDate *time.Time `gorm:"type:date"`
	ApprovedBy   string     `gorm:"size:200"`
}
