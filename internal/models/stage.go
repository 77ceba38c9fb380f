package models

import "gorm.io/gorm"

// WorkflowStage is one step of the approval pipeline. The catalog is
// ordered by SortOrder; stages referenced by history stay in place and
// are only ever toggled inactive.
type WorkflowStage struct {
	gorm.Model
	Code        string `gorm:"size:50;uniqueIndex;not null"` // "stage_1", ...
	Name        string `gorm:"size:200;not null"`
	Description string `gorm:"type:text"`
	SortOrder   int    `gorm:"default:0"`
	IsActive    bool   `gorm:"default:true"`
}

type WorkflowAction string

const (
	ActionCreate        WorkflowAction = "create"
	ActionEdit          WorkflowAction = "edit"
	ActionSubmit        WorkflowAction = "submit"
	ActionApprove       WorkflowAction = "approve"
	ActionReject        WorkflowAction = "reject"
	ActionDeleteRequest WorkflowAction = "delete_request"
	ActionDeleteApprove WorkflowAction = "delete_approve"
)

// WorkflowRule binds (stage, action) to the permission required to
// perform that action while a project sits in that stage. At most one
// active rule per pair; a missing rule means the action is forbidden.
type WorkflowRule struct {
	gorm.Model
	StageID uint           `gorm:"not null;uniqueIndex:idx_rule_stage_action"`
	Stage   WorkflowStage
	Action  WorkflowAction `gorm:"type:varchar(50);not null;uniqueIndex:idx_rule_stage_action"`

	RequiredPermissionID uint `gorm:"not null"`
	RequiredPermission   Permission

	// Optional explicit allow-list checked in addition to the
	// required permission.
	AllowedRoles []Role `gorm:"many2many:workflow_rule_roles;"`

	Description string `gorm:"type:text"`
	IsActive    bool   `gorm:"default:true"`
}
