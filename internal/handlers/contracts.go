package handlers

import (
	"errors"
	"net/http"
	"time"

	"buildtrack/internal/database"
	"buildtrack/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type contractRequest struct {
	ContractType   string `json:"contract_type"`
	Classification string `json:"classification"`
	TenderNo       string `json:"tender_no"`
	ContractDate   string `json:"contract_date"`

	ContractorName  string `json:"contractor_name"`
	ContractorPhone string `json:"contractor_phone"`
	ContractorEmail string `json:"contractor_email"`

	TotalProjectValue float64 `json:"total_project_value"`
	DurationMonths    int     `json:"duration_months"`

	StartOrderDate string `json:"start_order_date"`
	ProjectEndDate string `json:"project_end_date"`
	Notes          string `json:"notes"`
}

func parseDate(c *gin.Context, field, value string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": field + " must be YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}

func (h *Handler) GetContract(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, false)
	if !ok {
		return
	}
	var contract models.Contract
	if err := h.db.Where("project_id = ?", project.ID).First(&contract).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project has no contract"})
		return
	}
	c.JSON(http.StatusOK, contract)
}

// PutContract creates or replaces the project's single contract.
func (h *Handler) PutContract(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, true)
	if !ok {
		return
	}
	var req contractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	if req.TotalProjectValue < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_project_value cannot be negative"})
		return
	}
	contractDate, ok := parseDate(c, "contract_date", req.ContractDate)
	if !ok {
		return
	}
	startDate, ok := parseDate(c, "start_order_date", req.StartOrderDate)
	if !ok {
		return
	}
	endDate, ok := parseDate(c, "project_end_date", req.ProjectEndDate)
	if !ok {
		return
	}

	fields := map[string]any{
		"contract_type":       req.ContractType,
		"classification":      req.Classification,
		"tender_no":           req.TenderNo,
		"contract_date":       contractDate,
		"contractor_name":     req.ContractorName,
		"contractor_phone":    req.ContractorPhone,
		"contractor_email":    req.ContractorEmail,
		"total_project_value": req.TotalProjectValue,
		"duration_months":     req.DurationMonths,
		"start_order_date":    startDate,
		"project_end_date":    endDate,
		"notes":               req.Notes,
	}

	if actor.RequiresApproval() {
		var existing models.Contract
		action := models.ChangeCreate
		objectID := ""
		var old models.JSONMap
		err := h.db.Where("project_id = ?", project.ID).First(&existing).Error
		switch {
		case err == nil:
			action = models.ChangeUpdate
			objectID = database.ObjectID(existing.ID)
			old = models.JSONMap{
				"total_project_value": existing.TotalProjectValue,
				"contractor_name":     existing.ContractorName,
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			h.respondError(c, err)
			return
		}
		data := models.JSONMap(fields)
		data["project_id"] = project.ID
		change, err := h.queue.Enqueue(actor, action, "Contract", objectID, data, old)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"pending_change_id": change.ID, "status": change.Status})
		return
	}

	var contract models.Contract
	created := false
	err := h.db.Where("project_id = ?", project.ID).First(&contract).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Only a confirmed absence means create. A transient load
		// error must not race a second row into the unique index.
		contract = models.Contract{ProjectID: project.ID, TenantID: project.TenantID}
		created = true
	case err != nil:
		h.respondError(c, err)
		return
	}

	if created {
		contract.ContractType = req.ContractType
		contract.Classification = req.Classification
		contract.TenderNo = req.TenderNo
		contract.ContractDate = contractDate
		contract.ContractorName = req.ContractorName
		contract.ContractorPhone = req.ContractorPhone
		contract.ContractorEmail = req.ContractorEmail
		contract.TotalProjectValue = req.TotalProjectValue
		contract.DurationMonths = req.DurationMonths
		contract.StartOrderDate = startDate
		contract.ProjectEndDate = endDate
		contract.Notes = req.Notes
		if err := h.db.Create(&contract).Error; err != nil {
			h.respondError(c, err)
			return
		}
	} else {
		if err := h.db.Model(&contract).Updates(fields).Error; err != nil {
			h.respondError(c, err)
			return
		}
	}

	action := models.AuditEdit
	desc := "Updated contract for project: " + project.Name
	if created {
		action = models.AuditCreate
		desc = "Created contract for project: " + project.Name
	}
	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      action,
		ModelName:   "Contract",
		ObjectID:    database.ObjectID(contract.ID),
		Description: desc,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	// Total value feeds the percentage thresholds.
	h.updater.Recompute(project.ID)

	if created {
		c.JSON(http.StatusCreated, contract)
		return
	}
	c.JSON(http.StatusOK, contract)
}
