package handlers

import (
	"net/http"
	"time"

	"buildtrack/internal/database"
	"buildtrack/internal/models"
	"buildtrack/internal/workflow"

	"github.com/gin-gonic/gin"
)

type paymentRequest struct {
	Payer       models.Payer         `json:"payer"`
	Method      models.PaymentMethod `json:"method"`
	Amount      float64              `json:"amount"`
	Date        string               `json:"date"`
	Description string               `json:"description"`
}

func (p *paymentRequest) toModel() (*models.Payment, error) {
	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return nil, workflow.NewValidationError("date", "date must be YYYY-MM-DD")
	}
	payment := &models.Payment{
		Payer:       p.Payer,
		Method:      p.Method,
		Amount:      p.Amount,
		Date:        date,
		Description: p.Description,
	}
	if err := payment.Validate(); err != nil {
		return nil, workflow.NewValidationError("payment", err.Error())
	}
	return payment, nil
}

// loadProject fetches the parent project within the actor's tenant and
// enforces the finance gate shared by all payment and contract
// endpoints.
func (h *Handler) loadProject(c *gin.Context, actor workflow.Actor, write bool) (*models.Project, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	var project models.Project
	if err := tenantScoped(h.db, actor).First(&project, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return nil, false
	}
	if write && !actor.CanManageFinances() && !h.oracle.Holds(actor, models.PermPaymentManage) {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied: payments"})
		return nil, false
	}
	return &project, true
}

func (h *Handler) ListPayments(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, false)
	if !ok {
		return
	}
	var payments []models.Payment
	if err := h.db.Where("project_id = ?", project.ID).
		Order("date asc, created_at asc").
		Find(&payments).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) CreatePayment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, true)
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	payment, err := req.toModel()
	if err != nil {
		h.respondError(c, err)
		return
	}
	payment.ProjectID = &project.ID
	payment.TenantID = project.TenantID

	// Staff payments wait in the review queue like everything else
	// they touch.
	if actor.RequiresApproval() {
		change, err := h.queue.Enqueue(actor, models.ChangeCreate, "Payment", "", models.JSONMap{
			"project_id":  project.ID,
			"payer":       string(payment.Payer),
			"method":      string(payment.Method),
			"amount":      payment.Amount,
			"date":        payment.Date,
			"description": payment.Description,
		}, nil)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"pending_change_id": change.ID, "status": change.Status})
		return
	}

	if err := h.db.Create(payment).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditCreate,
		ModelName:   "Payment",
		ObjectID:    database.ObjectID(payment.ID),
		Description: "Recorded payment for project: " + project.Name,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	// The ledger changed, so the derived status may have too.
	h.updater.Recompute(project.ID)

	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) UpdatePayment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, true)
	if !ok {
		return
	}
	paymentID, ok := parseID(c, "paymentID")
	if !ok {
		return
	}
	var payment models.Payment
	if err := h.db.Where("project_id = ?", project.ID).First(&payment, paymentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}
	next, err := req.toModel()
	if err != nil {
		h.respondError(c, err)
		return
	}

	if actor.RequiresApproval() {
		change, err := h.queue.Enqueue(actor, models.ChangeUpdate, "Payment",
			database.ObjectID(payment.ID), models.JSONMap{
				"payer":       string(next.Payer),
				"method":      string(next.Method),
				"amount":      next.Amount,
				"date":        next.Date,
				"description": next.Description,
			}, models.JSONMap{
				"payer":       string(payment.Payer),
				"method":      string(payment.Method),
				"amount":      payment.Amount,
				"date":        payment.Date,
				"description": payment.Description,
			})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"pending_change_id": change.ID, "status": change.Status})
		return
	}

	changes := models.ChangeSet{}
	if payment.Amount != next.Amount {
		changes["amount"] = models.FieldChange{Before: payment.Amount, After: next.Amount}
	}
	if payment.Payer != next.Payer {
		changes["payer"] = models.FieldChange{Before: string(payment.Payer), After: string(next.Payer)}
	}

	if err := h.db.Model(&payment).Updates(map[string]any{
		"payer":       next.Payer,
		"method":      next.Method,
		"amount":      next.Amount,
		"date":        next.Date,
		"description": next.Description,
	}).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditEdit,
		ModelName:   "Payment",
		ObjectID:    database.ObjectID(payment.ID),
		Description: "Updated payment for project: " + project.Name,
		Changes:     changes,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	h.updater.Recompute(project.ID)

	c.JSON(http.StatusOK, gin.H{"message": "payment updated"})
}

func (h *Handler) DeletePayment(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	project, ok := h.loadProject(c, actor, true)
	if !ok {
		return
	}
	paymentID, ok := parseID(c, "paymentID")
	if !ok {
		return
	}
	var payment models.Payment
	if err := h.db.Where("project_id = ?", project.ID).First(&payment, paymentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	if actor.RequiresApproval() {
		change, err := h.queue.Enqueue(actor, models.ChangeDelete, "Payment",
			database.ObjectID(payment.ID), nil, models.JSONMap{
				"payer":  string(payment.Payer),
				"amount": payment.Amount,
				"date":   payment.Date,
			})
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"pending_change_id": change.ID, "status": change.Status})
		return
	}

	if err := h.db.Delete(&payment).Error; err != nil {
		h.respondError(c, err)
		return
	}

	uid := actor.UserID
	h.rec.Record(database.Entry{
		UserID:      &uid,
		Action:      models.AuditDelete,
		ModelName:   "Payment",
		ObjectID:    database.ObjectID(payment.ID),
		Description: "Deleted payment from project: " + project.Name,
		IPAddress:   actor.IP,
		StageID:     project.CurrentStageID,
	})

	h.updater.Recompute(project.ID)

	c.JSON(http.StatusOK, gin.H{"message": "payment deleted"})
}
