package workflow

import (
	"errors"
	"fmt"
	"time"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Machine drives a project's approval lifecycle. Every transition runs
// in one transaction with the project row locked, checks the subject's
// state before the actor's permissions, and writes its audit entry on
// the same transaction.
type Machine struct {
	db     *gorm.DB
	rules  *RuleTable
	oracle *Oracle
	rec    *database.Recorder
	log    *zap.Logger
}

func NewMachine(db *gorm.DB, rec *database.Recorder, log *zap.Logger) *Machine {
	return &Machine{
		db:     db,
		rules:  NewRuleTable(db),
		oracle: NewOracle(db),
		rec:    rec,
		log:    log,
	}
}

// Submit moves a project into review. Re-submitting an approved or
// rejected project is allowed and simply puts it back to pending.
// Final-approved projects and projects with an open delete request
// are off limits: the platform sign-off and the delete flow cannot be
// undone by a stage-level submit.
func (m *Machine) Submit(actor Actor, projectID uint) (*models.Project, error) {
	var project models.Project
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, actor, projectID, &project); err != nil {
			return err
		}
		if err := ensureNotTerminal(&project); err != nil {
			return err
		}
		switch project.ApprovalStatus {
		case models.ApprovalFinalApproved:
			return fmt.Errorf("%w: final-approved projects cannot be resubmitted", ErrInvalidState)
		case models.ApprovalDeleteRequested:
			return fmt.Errorf("%w: project has an open delete request", ErrInvalidState)
		}
		if project.CurrentStageID == nil {
			return fmt.Errorf("%w: project has no current stage", ErrInvalidState)
		}
		if !m.allowed(tx, actor, *project.CurrentStageID, models.ActionSubmit) {
			return fmt.Errorf("%w: submit", ErrPermissionDenied)
		}
		before := project.ApprovalStatus
		project.ApprovalStatus = models.ApprovalPending
		if err := tx.Model(&project).Update("approval_status", project.ApprovalStatus).Error; err != nil {
			return err
		}
		m.audit(tx, actor, string(models.ActionSubmit), &project, "Submitted project for approval", statusDiff(before, project.ApprovalStatus))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Approve signs off the current stage.
func (m *Machine) Approve(actor Actor, projectID uint, notes string) (*models.Project, error) {
	var project models.Project
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, actor, projectID, &project); err != nil {
			return err
		}
		if err := ensureNotTerminal(&project); err != nil {
			return err
		}
		if project.CurrentStageID == nil {
			return fmt.Errorf("%w: project has no current stage", ErrInvalidState)
		}
		if !m.allowed(tx, actor, *project.CurrentStageID, models.ActionApprove) {
			return fmt.Errorf("%w: approve", ErrPermissionDenied)
		}
		before := project.ApprovalStatus
		now := time.Now()
		project.ApprovalStatus = models.ApprovalApproved
		project.LastApprovedByID = &actor.UserID
		project.LastApprovedAt = &now
		project.ApprovalNotes = notes
		if err := tx.Model(&project).Updates(map[string]any{
			"approval_status":     project.ApprovalStatus,
			"last_approved_by_id": actor.UserID,
			"last_approved_at":    now,
			"approval_notes":      notes,
		}).Error; err != nil {
			return err
		}
		m.audit(tx, actor, string(models.ActionApprove), &project, "Approved project", statusDiff(before, project.ApprovalStatus))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Reject requires notes: review without a reason is useless to the
// submitter.
func (m *Machine) Reject(actor Actor, projectID uint, notes string) (*models.Project, error) {
	if notes == "" {
		return nil, validation("notes", "rejection notes are required")
	}
	var project models.Project
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, actor, projectID, &project); err != nil {
			return err
		}
		if err := ensureNotTerminal(&project); err != nil {
			return err
		}
		if project.CurrentStageID == nil {
			return fmt.Errorf("%w: project has no current stage", ErrInvalidState)
		}
		if !m.allowed(tx, actor, *project.CurrentStageID, models.ActionReject) {
			return fmt.Errorf("%w: reject", ErrPermissionDenied)
		}
		before := project.ApprovalStatus
		now := time.Now()
		project.ApprovalStatus = models.ApprovalRejected
		project.LastApprovedByID = &actor.UserID
		project.LastApprovedAt = &now
		project.ApprovalNotes = notes
		if err := tx.Model(&project).Updates(map[string]any{
			"approval_status":     project.ApprovalStatus,
			"last_approved_by_id": actor.UserID,
			"last_approved_at":    now,
			"approval_notes":      notes,
		}).Error; err != nil {
			return err
		}
		m.audit(tx, actor, string(models.ActionReject), &project, "Rejected project: "+notes, statusDiff(before, project.ApprovalStatus))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// RequestDelete marks the project for deletion pending a second
// party's approval.
func (m *Machine) RequestDelete(actor Actor, projectID uint, reason string) (*models.Project, error) {
	if reason == "" {
		return nil, validation("reason", "delete reason is required")
	}
	var project models.Project
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, actor, projectID, &project); err != nil {
			return err
		}
		if err := ensureNotTerminal(&project); err != nil {
			return err
		}
		if project.CurrentStageID == nil {
			return fmt.Errorf("%w: project has no current stage", ErrInvalidState)
		}
		if !m.allowed(tx, actor, *project.CurrentStageID, models.ActionDeleteRequest) {
			return fmt.Errorf("%w: delete_request", ErrPermissionDenied)
		}
		before := project.ApprovalStatus
		now := time.Now()
		project.ApprovalStatus = models.ApprovalDeleteRequested
		project.DeleteRequestedByID = &actor.UserID
		project.DeleteRequestedAt = &now
		project.DeleteReason = reason
		if err := tx.Model(&project).Updates(map[string]any{
			"approval_status":        project.ApprovalStatus,
			"delete_requested_by_id": actor.UserID,
			"delete_requested_at":    now,
			"delete_reason":          reason,
		}).Error; err != nil {
			return err
		}
		m.audit(tx, actor, string(models.ActionDeleteRequest), &project, "Requested project deletion: "+reason, statusDiff(before, project.ApprovalStatus))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// ApproveDelete confirms a pending delete request and hard-deletes the
// project with its contract and payments in the same transaction.
// Deletion is the final side effect of the transition, not a separate
// operation.
func (m *Machine) ApproveDelete(actor Actor, projectID uint) (*models.Project, error) {
	var project models.Project
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, actor, projectID, &project); err != nil {
			return err
		}
		// State precedes permission: even a superuser gets
		// InvalidState here.
		if project.ApprovalStatus != models.ApprovalDeleteRequested {
			return fmt.Errorf("%w: project is not in delete_requested status", ErrInvalidState)
		}
		if project.CurrentStageID == nil {
			return fmt.Errorf("%w: project has no current stage", ErrInvalidState)
		}
		if !m.allowed(tx, actor, *project.CurrentStageID, models.ActionDeleteApprove) {
			return fmt.Errorf("%w: delete_approve", ErrPermissionDenied)
		}
		before := project.ApprovalStatus
		now := time.Now()
		project.ApprovalStatus = models.ApprovalDeleteApproved
		project.DeleteApprovedByID = &actor.UserID
		project.DeleteApprovedAt = &now
		if err := tx.Model(&project).Updates(map[string]any{
			"approval_status":       project.ApprovalStatus,
			"delete_approved_by_id": actor.UserID,
			"delete_approved_at":    now,
		}).Error; err != nil {
			return err
		}
		m.audit(tx, actor, string(models.ActionDeleteApprove), &project, "Approved project deletion", statusDiff(before, project.ApprovalStatus))

		// Owned children go first. Unscoped: this is the one place
		// rows are removed for real, not soft-deleted.
		if err := tx.Unscoped().Where("project_id = ?", project.ID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("project_id = ?", project.ID).Delete(&models.Variation{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("project_id = ?", project.ID).Delete(&models.Contract{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Project{}, project.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// FinalApprove is the platform-level sign-off. It is deliberately not
// gated through the rule table: only superusers and tenant owners may
// call it, whatever the stage rules say.
func (m *Machine) FinalApprove(actor Actor, projectID uint, notes string) (*models.Project, error) {
	var project models.Project
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, actor, projectID, &project); err != nil {
			return err
		}
		if err := ensureNotTerminal(&project); err != nil {
			return err
		}
		if project.ApprovalStatus != models.ApprovalApproved && project.ApprovalStatus != models.ApprovalDraft {
			return fmt.Errorf("%w: final approval requires draft or approved status", ErrInvalidState)
		}
		if !actor.IsSuperuser && !actor.IsTenantOwner() {
			return fmt.Errorf("%w: final_approve", ErrPermissionDenied)
		}
		before := project.ApprovalStatus
		now := time.Now()
		project.ApprovalStatus = models.ApprovalFinalApproved
		project.LastApprovedByID = &actor.UserID
		project.LastApprovedAt = &now
		project.ApprovalNotes = notes
		if err := tx.Model(&project).Updates(map[string]any{
			"approval_status":     project.ApprovalStatus,
			"last_approved_by_id": actor.UserID,
			"last_approved_at":    now,
			"approval_notes":      notes,
		}).Error; err != nil {
			return err
		}
		m.audit(tx, actor, "final_approve", &project, "Final-approved project", statusDiff(before, project.ApprovalStatus))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// MoveToStage relocates a project to an arbitrary active stage and
// resets its approval status to draft, discarding any pending review.
// Platform staff only.
func (m *Machine) MoveToStage(actor Actor, projectID uint, stageCode string) (*models.Project, error) {
	if stageCode == "" {
		return nil, validation("stage_code", "stage_code is required")
	}
	var project models.Project
	err := m.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, actor, projectID, &project); err != nil {
			return err
		}
		if err := ensureNotTerminal(&project); err != nil {
			return err
		}
		if !actor.IsStaff && !actor.IsSuperuser {
			return fmt.Errorf("%w: only platform staff can move projects between stages", ErrPermissionDenied)
		}
		stage, err := m.rules.withTx(tx).StageByCode(stageCode)
		if err != nil {
			return err
		}
		oldCode := ""
		if project.CurrentStage != nil {
			oldCode = project.CurrentStage.Code
		} else if project.CurrentStageID != nil {
			var old models.WorkflowStage
			if err := tx.First(&old, *project.CurrentStageID).Error; err == nil {
				oldCode = old.Code
			}
		}
		project.CurrentStageID = &stage.ID
		project.CurrentStage = stage
		project.ApprovalStatus = models.ApprovalDraft
		if err := tx.Model(&project).Updates(map[string]any{
			"current_stage_id": stage.ID,
			"approval_status":  models.ApprovalDraft,
		}).Error; err != nil {
			return err
		}
		m.audit(tx, actor, models.AuditEdit, &project,
			fmt.Sprintf("Moved project from %q to %q", oldCode, stage.Code),
			models.ChangeSet{"stage": {Before: oldCode, After: stage.Code}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Allowed is the rule-table check used by handlers to gate plain
// create/edit operations on staged projects.
func (m *Machine) Allowed(actor Actor, stageID uint, action models.WorkflowAction) bool {
	return m.allowed(m.db, actor, stageID, action)
}

func (m *Machine) allowed(tx *gorm.DB, actor Actor, stageID uint, action models.WorkflowAction) bool {
	if actor.IsSuperuser {
		return true
	}
	rule, err := m.rules.withTx(tx).RuleFor(stageID, action)
	if err != nil {
		// Missing rule means the action is undefined for the
		// stage: forbidden, not an error.
		return false
	}
	if m.oracle.withTx(tx).Holds(actor, rule.RequiredPermission.Code) {
		return true
	}
	if actor.RoleID != nil {
		for _, r := range rule.AllowedRoles {
			if r.ID == *actor.RoleID {
				return true
			}
		}
	}
	return false
}

func (m *Machine) audit(tx *gorm.DB, actor Actor, action string, p *models.Project, desc string, changes models.ChangeSet) {
	uid := actor.UserID
	m.rec.WithTx(tx).Record(database.Entry{
		UserID:      &uid,
		Action:      action,
		ModelName:   "Project",
		ObjectID:    database.ObjectID(p.ID),
		Description: desc,
		Changes:     changes,
		IPAddress:   actor.IP,
		StageID:     p.CurrentStageID,
	})
}

func statusDiff(before, after models.ApprovalStatus) models.ChangeSet {
	return models.ChangeSet{
		"approval_status": {Before: string(before), After: string(after)},
	}
}

func ensureNotTerminal(p *models.Project) error {
	if p.ApprovalStatus == models.ApprovalDeleteApproved {
		return fmt.Errorf("%w: project deletion has been approved", ErrInvalidState)
	}
	return nil
}

// lockProject fetches the subject row for update, scoped to the
// actor's tenant. Two concurrent transitions on the same project
// serialize on this lock; the second sees the first's committed state.
func lockProject(tx *gorm.DB, actor Actor, id uint, out *models.Project) error {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		// sqlite (tests) has no row locks; writers serialize on
		// the database file instead.
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if !actor.IsSuperuser && actor.TenantID != nil {
		q = q.Where("tenant_id = ?", *actor.TenantID)
	}
	if err := q.First(out, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: project %d", ErrNotFound, id)
		}
		return err
	}
	return nil
}
