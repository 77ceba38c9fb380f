package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:150"`
	LastName     string `gorm:"size:150"`
	Phone        string `gorm:"size:20"`

	IsActive bool `gorm:"default:true"`
	// IsStaff marks platform operators; IsSuperuser bypasses every
	// workflow rule check.
	IsStaff     bool
	IsSuperuser bool

	RoleID *uint
	Role   *Role

	TenantID *uuid.UUID `gorm:"type:uuid;index"`
	Tenant   *Tenant
}

func (u *User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}
