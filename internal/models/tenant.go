package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is a company on the platform. Every domain record carries a
// tenant reference; queries are always scoped to the acting tenant.
type Tenant struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"size:200;not null"`
	Slug string    `gorm:"size:200;uniqueIndex;not null"`

	IsActive    bool `gorm:"default:true"`
	IsTrial     bool `gorm:"default:true"`
	TrialEndsAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
