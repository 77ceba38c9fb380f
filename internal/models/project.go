package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectType string

const (
	ProjectVilla        ProjectType = "villa"
	ProjectCommercial   ProjectType = "commercial"
	ProjectMaintenance  ProjectType = "maintenance"
	ProjectGovernmental ProjectType = "governmental"
	ProjectFitout       ProjectType = "fitout"
)

// ApprovalStatus is the human-sign-off axis of project state. It is
// independent of the payment-derived OperationalStatus.
type ApprovalStatus string

const (
	ApprovalDraft           ApprovalStatus = "draft"
	ApprovalPending         ApprovalStatus = "pending"
	ApprovalApproved        ApprovalStatus = "approved"
	ApprovalRejected        ApprovalStatus = "rejected"
	ApprovalFinalApproved   ApprovalStatus = "final_approved"
	ApprovalDeleteRequested ApprovalStatus = "delete_requested"
	ApprovalDeleteApproved  ApprovalStatus = "delete_approved" // terminal
)

// OperationalStatus is derived from the payment ledger, never set by
// hand.
type OperationalStatus string

const (
	StatusNotStarted              OperationalStatus = "not_started"
	StatusExecutionStarted        OperationalStatus = "execution_started"
	StatusUnderExecution          OperationalStatus = "under_execution"
	StatusTemporarilySuspended    OperationalStatus = "temporarily_suspended"
	StatusHandoverStage           OperationalStatus = "handover_stage"
	StatusPendingFinancialClosure OperationalStatus = "pending_financial_closure"
	StatusCompleted               OperationalStatus = "completed"

	// Legacy values still present on old rows.
	StatusDraft      OperationalStatus = "draft"
	StatusInProgress OperationalStatus = "in_progress"
)

type Project struct {
	gorm.Model
	TenantID *uuid.UUID `gorm:"type:uuid;index"`
	Tenant   *Tenant

	Name         string      `gorm:"size:200"`
	Type         ProjectType `gorm:"type:varchar(40)"`
	InternalCode string      `gorm:"size:40;index"`
	Description  string      `gorm:"type:text"`

	Status OperationalStatus `gorm:"type:varchar(30);not null;default:'not_started'"`

	// Approval workflow state.
	CurrentStageID *uint
	CurrentStage   *WorkflowStage
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(30);not null;default:'draft'"`

	DeleteRequestedByID *uint
	DeleteRequestedBy   *User
	DeleteRequestedAt   *time.Time
	DeleteReason        string `gorm:"type:text"`

	DeleteApprovedByID *uint
	DeleteApprovedAt   *time.Time

	LastApprovedByID *uint
	LastApprovedBy   *User
	LastApprovedAt   *time.Time
	ApprovalNotes    string `gorm:"type:text"`

	Contract *Contract
	Payments []Payment
}
