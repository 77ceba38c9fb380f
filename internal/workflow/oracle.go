package workflow

import (
	"buildtrack/internal/models"

	"gorm.io/gorm"
)

// Oracle answers "does this actor hold this capability". The role →
// permission mapping is read fresh on every call so capability edits
// take effect immediately; nothing is cached.
type Oracle struct {
	db *gorm.DB
}

func NewOracle(db *gorm.DB) *Oracle {
	return &Oracle{db: db}
}

func (o *Oracle) withTx(tx *gorm.DB) *Oracle {
	return &Oracle{db: tx}
}

// Holds reports whether the actor holds the named permission.
// Superusers hold everything; actors without a role hold nothing.
func (o *Oracle) Holds(actor Actor, code string) bool {
	if actor.IsSuperuser {
		return true
	}
	if actor.RoleID == nil {
		return false
	}
	var n int64
	err := o.db.Model(&models.Permission{}).
		Joins("JOIN role_permissions rp ON rp.permission_id = permissions.id").
		Where("rp.role_id = ? AND permissions.code = ?", *actor.RoleID, code).
		Count(&n).Error
	if err != nil {
		return false
	}
	return n > 0
}
