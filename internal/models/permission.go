package models

import "gorm.io/gorm"

// Well-known permission codes seeded on startup. Workflow rules may
// reference any permission row, these are just the defaults.
const (
	PermProjectCreate        = "project.create"
	PermProjectEdit          = "project.edit"
	PermProjectSubmit        = "project.submit"
	PermProjectApprove       = "project.approve"
	PermProjectReject        = "project.reject"
	PermProjectDeleteRequest = "project.delete_request"
	PermProjectDeleteApprove = "project.delete_approve"
	PermContractManage       = "contract.manage"
	PermPaymentManage        = "payment.manage"
	PermFinanceView          = "finance.view"
	PermAuditView            = "audit.view"
)

type Permission struct {
	gorm.Model
	Code     string `gorm:"size:100;uniqueIndex;not null"` // e.g. "project.approve"
	Name     string `gorm:"size:200;not null"`
	Category string `gorm:"size:100"` // "project", "finance", ...
}

// RoleKind is fixed when the role is created and drives the coarse
// dispatch (who reviews pending changes, who needs them). Fine-grained
// workflow legality always goes through permission codes instead.
type RoleKind string

const (
	RoleKindAdmin   RoleKind = "admin"   // tenant owner
	RoleKindManager RoleKind = "manager" // reviews, manages finances
	RoleKindStaff   RoleKind = "staff"   // edits go through pending changes
)

type Role struct {
	gorm.Model
	Name        string   `gorm:"size:100;uniqueIndex;not null"`
	Kind        RoleKind `gorm:"type:varchar(20);not null"`
	Description string   `gorm:"type:text"`
	IsActive    bool     `gorm:"default:true"`

	Permissions []Permission `gorm:"many2many:role_permissions;"`
}
