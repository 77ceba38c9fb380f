package workflow

import (
	"errors"
	"fmt"

	"buildtrack/internal/models"

	"gorm.io/gorm"
)

// RuleTable looks up the rule governing (stage, action). A missing or
// inactive rule is a legitimate outcome meaning the action is
// undefined for that stage; callers treat it as forbidden.
type RuleTable struct {
	db *gorm.DB
}

func NewRuleTable(db *gorm.DB) *RuleTable {
	return &RuleTable{db: db}
}

func (t *RuleTable) withTx(tx *gorm.DB) *RuleTable {
	return &RuleTable{db: tx}
}

func (t *RuleTable) RuleFor(stageID uint, action models.WorkflowAction) (*models.WorkflowRule, error) {
	var rule models.WorkflowRule
	err := t.db.Preload("RequiredPermission").Preload("AllowedRoles").
		Where("stage_id = ? AND action = ? AND is_active = ?", stageID, action, true).
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no rule for stage %d action %s", ErrNotFound, stageID, action)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// StageByCode resolves an active stage from the catalog.
func (t *RuleTable) StageByCode(code string) (*models.WorkflowStage, error) {
	var stage models.WorkflowStage
	err := t.db.Where("code = ? AND is_active = ?", code, true).First(&stage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: stage %q", ErrNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &stage, nil
}
