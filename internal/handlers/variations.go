package handlers

import (
	"errors"
	"net/http"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type variationRequest struct {
	Number       string  `json:"number"`
	Description  string  `json:"description"`
	NetAmount    float64 `json:"net_amount"`
	ApprovalDate string  `json:"approval_date"`
	ApprovedBy   string  `json:"approved_by"`
}

func (h *Handler) ListVariations(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, false)
	if !ok {
		return
	}
	var variations []models.Variation
	if err := h.db.Where("project_id = ?", project.ID).
		Order("approval_date desc, created_at desc").
		Find(&variations).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, variations)
}

func (h *Handler) CreateVariation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, true)
	if !ok {
		return
	}
	var req variationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if req.NetAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "net_amount cannot be negative"})
		return
	}
	approvalDate, ok := parseDate(c, "approval_date", req.ApprovalDate)
	if !ok {
		return
	}

	variation := models.Variation{
		TenantID:     project.TenantID,
		ProjectID:    project.ID,
		Number:       req.Number,
		Description:  req.Description,
		NetAmount:    req.NetAmount,
		ApprovalDate: approvalDate,
		ApprovedBy:   req.ApprovedBy,
	}
	if err := h.db.Create(&variation).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditCreate,
		ModelName:   "Variation",
		ObjectID:    database.ObjectID(variation.ID),
		Description: "Recorded change order for project: " + project.Name,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	h.applyVariationDelta(project.ID, variation.NetAmount)

	c.JSON(http.StatusCreated, variation)
}

func (h *Handler) UpdateVariation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, true)
	if !ok {
		return
	}
	variationID, ok := parseID(c, "variationID")
	if !ok {
		return
	}
	var variation models.Variation
	if err := h.db.Where("project_id = ?", project.ID).First(&variation, variationID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "variation not found"})
		return
	}
	var req variationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if req.NetAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "net_amount cannot be negative"})
		return
	}
	approvalDate, ok := parseDate(c, "approval_date", req.ApprovalDate)
	if !ok {
		return
	}

	oldAmount := variation.NetAmount
	changes := models.ChangeSet{}
	if oldAmount != req.NetAmount {
		changes["net_amount"] = models.FieldChange{Before: oldAmount, After: req.NetAmount}
	}

	if err := h.db.Model(&variation).Updates(map[string]any{
		"number":        req.Number,
		"description":   req.Description,
		"net_amount":    req.NetAmount,
		"approval_date": approvalDate,
		"approved_by":   req.ApprovedBy,
	}).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditEdit,
		ModelName:   "Variation",
		ObjectID:    database.ObjectID(variation.ID),
		Description: "Updated change order for project: " + project.Name,
		Changes:     changes,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	h.applyVariationDelta(project.ID, req.NetAmount-oldAmount)

	c.JSON(http.StatusOK, gin.H{"message": "variation updated"})
}

func (h *Handler) DeleteVariation(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, true)
	if !ok {
		return
	}
	variationID, ok := parseID(c, "variationID")
	if !ok {
		return
	}
	var variation models.Variation
	if err := h.db.Where("project_id = ?", project.ID).First(&variation, variationID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "variation not found"})
		return
	}

	if err := h.db.Delete(&variation).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditDelete,
		ModelName:   "Variation",
		ObjectID:    database.ObjectID(variation.ID),
		Description: "Removed change order from project: " + project.Name,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	h.applyVariationDelta(project.ID, -variation.NetAmount)

	c.JSON(http.StatusOK, gin.H{"message": "variation deleted"})
}

// applyVariationDelta folds a change-order delta into the contract's
// total value and re-derives the project status. A project without a
// contract has no denominator to adjust; the variation stays recorded
// and is absorbed once a contract is filed with its value included.
func (h *Handler) applyVariationDelta(projectID uint, delta float64) {
	if delta == 0 {
		return
	}
	var contract models.Contract
	err := h.db.Where("project_id = ?", projectID).First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		h.log.Warn("variation recalculation skipped", zap.Uint("project_id", projectID), zap.Error(err))
		return
	}
	if err := h.db.Model(&contract).
		UpdateColumn("total_project_value", gorm.Expr("total_project_value + ?", delta)).Error; err != nil {
		h.log.Warn("variation recalculation failed", zap.Uint("project_id", projectID), zap.Error(err))
		return
	}
	h.updater.Recompute(projectID)
}
