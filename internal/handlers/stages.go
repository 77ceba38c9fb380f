package handlers

import (
	"net/http"

	"buildtrack/internal/models"

	"github.com/gin-gonic/gin"
)

// platformOnly blocks everyone but platform staff and superusers.
func (h *Handler) platformOnly(c *gin.Context) bool {
	actor, ok := h.actor(c)
	if !ok {
		return false
	}
	if !actor.IsStaff && !actor.IsSuperuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "platform staff only"})
		return false
	}
	return true
}

func (h *Handler) ListStages(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}
	var stages []models.WorkflowStage
	if err := h.db.Where("is_active = ?", true).Order("sort_order asc").Find(&stages).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stages)
}

type stageRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}

func (h *Handler) CreateStage(c *gin.Context) {
	if !h.platformOnly(c) {
		return
	}
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if req.Code == "" || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required"})
		return
	}
	stage := models.WorkflowStage{
		Code:      req.Code,
		Name:      req.Name,
		SortOrder: req.SortOrder,
		IsActive:  true,
	}
	if req.IsActive != nil {
		stage.IsActive = *req.IsActive
	}
	if err := h.db.Create(&stage).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stage)
}

func (h *Handler) UpdateStage(c *gin.Context) {
	if !h.platformOnly(c) {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var stage models.WorkflowStage
	if err := h.db.First(&stage, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stage not found"})
		return
	}
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.SortOrder != 0 {
		updates["sort_order"] = req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := h.db.Model(&stage).Updates(updates).Error; err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, stage)
}

type ruleRequest struct {
	StageID            uint                  `json:"stage_id"`
	Action             models.WorkflowAction `json:"action"`
	RequiredPermission string                `json:"required_permission"`
	AllowedRoleIDs     []uint                `json:"allowed_role_ids"`
}

func (h *Handler) ListRules(c *gin.Context) {
	if !h.platformOnly(c) {
		return
	}
	var rules []models.WorkflowRule
	if err := h.db.Preload("Stage").Preload("RequiredPermission").Preload("AllowedRoles").
		Find(&rules).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) CreateRule(c *gin.Context) {
	if !h.platformOnly(c) {
		return
	}
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	var stage models.WorkflowStage
	if err := h.db.First(&stage, req.StageID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stage not found"})
		return
	}
	var perm models.Permission
	if err := h.db.Where("code = ?", req.RequiredPermission).First(&perm).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "permission not found"})
		return
	}
	rule := models.WorkflowRule{
		StageID:              stage.ID,
		Action:               req.Action,
		RequiredPermissionID: perm.ID,
		IsActive:             true,
	}
	if len(req.AllowedRoleIDs) > 0 {
		var roles []models.Role
		if err := h.db.Find(&roles, req.AllowedRoleIDs).Error; err != nil {
			h.respondError(c, err)
			return
		}
		rule.AllowedRoles = roles
	}
	if err := h.db.Create(&rule).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}
