package status

import (
	"errors"
	"time"

	"buildtrack/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Updater recomputes and persists a project's operational status after
// every payment mutation. It must never fail the payment write that
// triggered it: errors are logged and degrade to the conservative
// default.
type Updater struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewUpdater(db *gorm.DB, log *zap.Logger) *Updater {
	return &Updater{db: db, log: log, now: time.Now}
}

// Recompute derives the status for projectID from the current ledger
// and writes it back only when it changed. The write goes through
// UpdateColumn so it bumps no timestamps and fires no hooks: a
// recompute with no ledger change is a strict no-op.
func (u *Updater) Recompute(projectID uint) models.OperationalStatus {
	var project models.Project
	if err := u.db.First(&project, projectID).Error; err != nil {
		u.warn("load project", projectID, err)
		return models.StatusNotStarted
	}

	var payments []models.Payment
	if err := u.db.Where("project_id = ?", projectID).
		Order("date asc, created_at asc").
		Find(&payments).Error; err != nil {
		u.warn("load payments", projectID, err)
		return models.StatusNotStarted
	}

	var totalValue float64
	var contract models.Contract
	err := u.db.Where("project_id = ?", projectID).First(&contract).Error
	switch {
	case err == nil:
		totalValue = contract.TotalProjectValue
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No contract: percentage rules stay disabled.
	default:
		u.warn("load contract", projectID, err)
	}

	next := Derive(payments, totalValue, u.now())
	if next == project.Status {
		return next
	}
	if err := u.db.Model(&models.Project{}).
		Where("id = ?", projectID).
		UpdateColumn("status", next).Error; err != nil {
		u.warn("write status", projectID, err)
	}
	return next
}

func (u *Updater) warn(op string, projectID uint, err error) {
	if u.log != nil {
		u.log.Warn("status recompute degraded",
			zap.String("op", op),
			zap.Uint("project_id", projectID),
			zap.Error(err))
	}
}
