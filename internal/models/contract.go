package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contract is one per project. TotalProjectValue is the denominator for
// the percentage-based operational status thresholds.
type Contract struct {
	gorm.Model
	TenantID *uuid.UUID `gorm:"type:uuid;index"`

	ProjectID uint `gorm:"uniqueIndex;not null"`

	ContractType   string `gorm:"size:120"`
	Classification string `gorm:"size:120"`
	TenderNo       string `gorm:"size:120"`
	ContractDate   *time.Time

	ContractorName  string `gorm:"size:200"`
	ContractorPhone string `gorm:"size:20"`
	ContractorEmail string `gorm:"size:255"`

	TotalProjectValue float64 `gorm:"type:numeric(14,2)"`
	DurationMonths    int     `gorm:"default:0"`

	StartOrderDate *time.Time
	ProjectEndDate *time.Time
	Notes          string `gorm:"type:text"`
}
