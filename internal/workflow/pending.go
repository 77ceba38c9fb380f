package workflow

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Subject tables the queue may mutate. Keys match PendingChange.ModelName.
var changeSubjects = map[string]func() any{
	"Project":  func() any { return &models.Project{} },
	"Contract": func() any { return &models.Contract{} },
	"Payment":  func() any { return &models.Payment{} },
}

// Queue stages mutations for actors whose edits require a reviewer.
// Approving a change applies its proposed data to the live row;
// rejecting discards it. Either way the change row itself is resolved
// exactly once.
type Queue struct {
	db  *gorm.DB
	rec *database.Recorder
	log *zap.Logger
}

func NewQueue(db *gorm.DB, rec *database.Recorder, log *zap.Logger) *Queue {
	return &Queue{db: db, rec: rec, log: log}
}

// Enqueue records a deferred mutation instead of applying it.
func (q *Queue) Enqueue(actor Actor, action models.ChangeAction, modelName, objectID string, data, oldData models.JSONMap) (*models.PendingChange, error) {
	if _, ok := changeSubjects[modelName]; !ok {
		return nil, fmt.Errorf("%w: unknown change subject %q", ErrNotFound, modelName)
	}
	if actor.TenantID == nil {
		return nil, validation("tenant", "pending changes require a tenant")
	}
	change := models.PendingChange{
		RequestedByID: actor.UserID,
		TenantID:      *actor.TenantID,
		Action:        action,
		ModelName:     modelName,
		ObjectID:      objectID,
		Data:          data,
		OldData:       oldData,
		Status:        models.ChangePending,
	}
	if err := q.db.Create(&change).Error; err != nil {
		return nil, err
	}
	return &change, nil
}

// Approve applies the proposed data to the live subject and resolves
// the change.
func (q *Queue) Approve(reviewer Actor, changeID uint) (*models.PendingChange, error) {
	var change models.PendingChange
	err := q.db.Transaction(func(tx *gorm.DB) error {
		if err := q.lockChange(tx, changeID, &change); err != nil {
			return err
		}
		if change.Status != models.ChangePending {
			return fmt.Errorf("%w: change is already %s", ErrInvalidState, change.Status)
		}
		if err := q.checkReviewer(reviewer, &change); err != nil {
			return err
		}
		objectID, err := q.apply(tx, &change)
		if err != nil {
			return err
		}
		now := time.Now()
		change.Status = models.ChangeApproved
		change.ReviewedByID = &reviewer.UserID
		change.ReviewedAt = &now
		if err := tx.Model(&change).Updates(map[string]any{
			"status":         change.Status,
			"reviewed_by_id": reviewer.UserID,
			"reviewed_at":    now,
		}).Error; err != nil {
			return err
		}
		uid := reviewer.UserID
		q.rec.WithTx(tx).Record(database.Entry{
			UserID:      &uid,
			Action:      string(models.ActionApprove),
			ModelName:   change.ModelName,
			ObjectID:    objectID,
			Description: fmt.Sprintf("Approved %s request #%d", change.Action, change.ID),
			Changes:     models.ChangeSet{"pending_change": {Before: string(models.ChangePending), After: string(models.ChangeApproved)}},
			IPAddress:   reviewer.IP,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// Reject resolves the change without touching the subject.
func (q *Queue) Reject(reviewer Actor, changeID uint, notes string) (*models.PendingChange, error) {
	var change models.PendingChange
	err := q.db.Transaction(func(tx *gorm.DB) error {
		if err := q.lockChange(tx, changeID, &change); err != nil {
			return err
		}
		if change.Status != models.ChangePending {
			return fmt.Errorf("%w: change is already %s", ErrInvalidState, change.Status)
		}
		if err := q.checkReviewer(reviewer, &change); err != nil {
			return err
		}
		now := time.Now()
		change.Status = models.ChangeRejected
		change.ReviewedByID = &reviewer.UserID
		change.ReviewedAt = &now
		change.ReviewNotes = notes
		if err := tx.Model(&change).Updates(map[string]any{
			"status":         change.Status,
			"reviewed_by_id": reviewer.UserID,
			"reviewed_at":    now,
			"review_notes":   notes,
		}).Error; err != nil {
			return err
		}
		uid := reviewer.UserID
		q.rec.WithTx(tx).Record(database.Entry{
			UserID:      &uid,
			Action:      string(models.ActionReject),
			ModelName:   change.ModelName,
			ObjectID:    change.ObjectID,
			Description: fmt.Sprintf("Rejected %s request #%d", change.Action, change.ID),
			Changes:     models.ChangeSet{"pending_change": {Before: string(models.ChangePending), After: string(models.ChangeRejected)}},
			IPAddress:   reviewer.IP,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

func (q *Queue) lockChange(tx *gorm.DB, id uint, out *models.PendingChange) error {
	if err := tx.First(out, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: pending change %d", ErrNotFound, id)
		}
		return err
	}
	return nil
}

func (q *Queue) checkReviewer(reviewer Actor, change *models.PendingChange) error {
	if !reviewer.CanReviewChanges() {
		return fmt.Errorf("%w: only admins or managers can review changes", ErrPermissionDenied)
	}
	if reviewer.IsSuperuser {
		return nil
	}
	if reviewer.TenantID == nil || *reviewer.TenantID != change.TenantID {
		return fmt.Errorf("%w: change belongs to another tenant", ErrPermissionDenied)
	}
	return nil
}

// apply performs the staged mutation against the real subject row.
func (q *Queue) apply(tx *gorm.DB, change *models.PendingChange) (string, error) {
	newSubject, ok := changeSubjects[change.ModelName]
	if !ok {
		return "", fmt.Errorf("%w: unknown change subject %q", ErrNotFound, change.ModelName)
	}

	switch change.Action {
	case models.ChangeCreate:
		data := map[string]any(change.Data)
		if data == nil {
			data = map[string]any{}
		}
		if _, ok := data["tenant_id"]; !ok {
			data["tenant_id"] = change.TenantID
		}
		res := tx.Model(newSubject()).Create(data)
		if res.Error != nil {
			return "", res.Error
		}
		// Column-map creates carry no returning id on every
		// driver; the audit entry falls back to the change's own
		// subject reference.
		if id, ok := data["id"]; ok {
			return fmt.Sprint(id), nil
		}
		return change.ObjectID, nil

	case models.ChangeUpdate:
		id, err := strconv.ParseUint(change.ObjectID, 10, 64)
		if err != nil {
			return "", validation("object_id", "malformed subject id")
		}
		res := tx.Model(newSubject()).Where("id = ?", id).Updates(map[string]any(change.Data))
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			return "", fmt.Errorf("%w: %s %s", ErrNotFound, change.ModelName, change.ObjectID)
		}
		return change.ObjectID, nil

	case models.ChangeDelete:
		id, err := strconv.ParseUint(change.ObjectID, 10, 64)
		if err != nil {
			return "", validation("object_id", "malformed subject id")
		}
		res := tx.Where("id = ?", id).Delete(newSubject())
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected == 0 {
			return "", fmt.Errorf("%w: %s %s", ErrNotFound, change.ModelName, change.ObjectID)
		}
		return change.ObjectID, nil

	default:
		return "", validation("action", "invalid change action")
	}
}
