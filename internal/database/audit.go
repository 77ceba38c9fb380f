package database

import (
	"strconv"

	"buildtrack/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Entry is everything a caller supplies for one audit row.
type Entry struct {
	UserID      *uint
	Action      string
	ModelName   string
	ObjectID    string
	Description string
	Changes     models.ChangeSet
	IPAddress   string
	StageID     *uint
}

// Recorder appends audit entries. Writes are fire-and-forget: a failed
// audit write is logged and swallowed, never surfaced to the caller.
type Recorder struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRecorder(db *gorm.DB, log *zap.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// WithTx returns a recorder writing on the given transaction, so a
// state mutation and its audit entry commit together.
func (r *Recorder) WithTx(tx *gorm.DB) *Recorder {
	return &Recorder{db: tx, log: r.log}
}

func (r *Recorder) Record(e Entry) {
	if r == nil || r.db == nil {
		return
	}
	row := models.AuditLog{
		UserID:      e.UserID,
		Action:      e.Action,
		ModelName:   e.ModelName,
		ObjectID:    e.ObjectID,
		Description: e.Description,
		Changes:     e.Changes,
		IPAddress:   e.IPAddress,
		StageID:     e.StageID,
	}
	if err := r.db.Create(&row).Error; err != nil && r.log != nil {
		r.log.Warn("audit write failed",
			zap.String("action", e.Action),
			zap.String("model", e.ModelName),
			zap.String("object_id", e.ObjectID),
			zap.Error(err))
	}
}

// ObjectID formats a numeric primary key for the audit columns.
func ObjectID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
