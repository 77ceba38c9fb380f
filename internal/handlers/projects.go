package handlers

import (
	"fmt"
	"net/http"
	"regexp"

	"buildtrack/internal/database"
	"buildtrack/internal/models"
	"buildtrack/internal/workflow"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Internal code: starts with M, digits, last digit odd.
var internalCodeRe = regexp.MustCompile(`^M[0-9]*[13579]$`)

func validProjectType(t models.ProjectType) bool {
	switch t {
	case "", models.ProjectVilla, models.ProjectCommercial, models.ProjectMaintenance,
		models.ProjectGovernmental, models.ProjectFitout:
		return true
	}
	return false
}

// tenantScoped narrows a query to the actor's tenant. Superusers and
// platform staff see everything.
func tenantScoped(q *gorm.DB, actor workflow.Actor) *gorm.DB {
	if actor.IsSuperuser || actor.IsStaff {
		return q
	}
	if actor.TenantID != nil {
		return q.Where("tenant_id = ?", *actor.TenantID)
	}
	// No tenant and no platform rights: sees nothing.
	return q.Where("1 = 0")
}

func (h *Handler) ListProjects(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	q := tenantScoped(h.db.Model(&models.Project{}), actor).
		Preload("CurrentStage").
		Order("created_at desc")

	if s := c.Query("status"); s != "" {
		q = q.Where("status = ?", s)
	}
	if s := c.Query("approval_status"); s != "" {
		q = q.Where("approval_status = ?", s)
	}
	if s := c.Query("type"); s != "" {
		q = q.Where("type = ?", s)
	}

	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *Handler) GetProject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	err := tenantScoped(h.db, actor).
		Preload("CurrentStage").Preload("Contract").Preload("Payments").
		First(&project, id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, project)
}

type projectRequest struct {
	Name         string             `json:"name"`
	Type         models.ProjectType `json:"type"`
	InternalCode string             `json:"internal_code"`
	Description  string             `json:"description"`
	StageCode    string             `json:"stage_code"`
}

func (p *projectRequest) validate() error {
	if !validProjectType(p.Type) {
		return fmt.Errorf("invalid project type %q", p.Type)
	}
	if p.InternalCode != "" && !internalCodeRe.MatchString(p.InternalCode) {
		return fmt.Errorf("internal code must start with 'M' and end with an odd digit")
	}
	return nil
}

func (h *Handler) CreateProject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if actor.TenantID == nil && !actor.IsSuperuser {
		c.JSON(http.StatusForbidden, gin.H{"error": "actor has no tenant"})
		return
	}

	var stageID *uint
	if req.StageCode != "" {
		var stage models.WorkflowStage
		if err := h.db.Where("code = ? AND is_active = ?", req.StageCode, true).First(&stage).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "stage not found"})
			return
		}
		stageID = &stage.ID
	}

	// Staff edits are not trusted: divert into the review queue.
	if actor.RequiresApproval() {
		change, err := h.queue.Enqueue(actor, models.ChangeCreate, "Project", "", models.JSONMap{
			"name":             req.Name,
			"type":             string(req.Type),
			"internal_code":    req.InternalCode,
			"description":      req.Description,
			"current_stage_id": stageID,
			"status":           string(models.StatusNotStarted),
			"approval_status":  string(models.ApprovalDraft),
		}, nil)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"pending_change_id": change.ID, "status": change.Status})
		return
	}

	project := models.Project{
		TenantID:       actor.TenantID,
		Name:           req.Name,
		Type:           req.Type,
		InternalCode:   req.InternalCode,
		Description:    req.Description,
		Status:         models.StatusNotStarted,
		ApprovalStatus: models.ApprovalDraft,
		CurrentStageID: stageID,
	}
	if err := h.db.Create(&project).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditCreate,
		ModelName:   "Project",
		ObjectID:    database.ObjectID(project.ID),
		Description: "Created project: " + project.Name,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	c.JSON(http.StatusCreated, project)
}

func (h *Handler) UpdateProject(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var project models.Project
	if err := tenantScoped(h.db, actor).First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	// Staged projects gate edits through the rule table.
	if project.CurrentStageID != nil && !actor.RequiresApproval() {
		if !h.machine.Allowed(actor, *project.CurrentStageID, models.ActionEdit) {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied: edit"})
			return
		}
	}

	updates := models.JSONMap{
		"name":          req.Name,
		"type":          string(req.Type),
		"internal_code": req.InternalCode,
		"description":   req.Description,
	}

	if actor.RequiresApproval() {
		old := models.JSONMap{
			"name":          project.Name,
			"type":          string(project.Type),
			"internal_code": project.InternalCode,
			"description":   project.Description,
		}
		change, err := h.queue.Enqueue(actor, models.ChangeUpdate, "Project",
			database.ObjectID(project.ID), updates, old)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"pending_change_id": change.ID, "status": change.Status})
		return
	}

	changes := models.ChangeSet{}
	if project.Name != req.Name {
		changes["name"] = models.FieldChange{Before: project.Name, After: req.Name}
	}
	if project.Type != req.Type {
		changes["type"] = models.FieldChange{Before: string(project.Type), After: string(req.Type)}
	}
	if project.InternalCode != req.InternalCode {
		changes["internal_code"] = models.FieldChange{Before: project.InternalCode, After: req.InternalCode}
	}

	if err := h.db.Model(&project).Updates(map[string]any(updates)).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditEdit,
		ModelName:   "Project",
		ObjectID:    database.ObjectID(project.ID),
		Description: "Updated project: " + req.Name,
		Changes:     changes,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "project updated"})
}

// ProjectHistory returns the audit trail for one project, oldest
// first.
func (h *Handler) ProjectHistory(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var project models.Project
	if err := tenantScoped(h.db, actor).First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	var logs []models.AuditLog
	if err := h.db.
		Where("model_name = ? AND object_id = ?", "Project", database.ObjectID(project.ID)).
		Preload("User").Preload("Stage").
		Order("created_at asc").
		Find(&logs).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
