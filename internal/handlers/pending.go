package handlers

import (
	"net/http"
	"strconv"

	"buildtrack/internal/models"

	"github.com/gin-gonic/gin"
)

// ListPendingChanges scopes visibility by role: superusers see
// everything, admins and managers see their tenant, staff see only
// their own requests.
func (h *Handler) ListPendingChanges(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	q := h.db.Model(&models.PendingChange{}).
		Preload("RequestedBy").Preload("ReviewedBy").
		Order("created_at desc")

	switch {
	case actor.IsSuperuser:
	case actor.CanReviewChanges():
		if actor.TenantID == nil {
			c.JSON(http.StatusOK, []models.PendingChange{})
			return
		}
		q = q.Where("tenant_id = ?", *actor.TenantID)
	default:
		q = q.Where("requested_by_id = ?", actor.UserID)
	}

	if s := c.Query("status"); s != "" {
		q = q.Where("status = ?", s)
	}

	var changes []models.PendingChange
	if err := q.Find(&changes).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

func (h *Handler) ApprovePendingChange(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	change, err := h.queue.Approve(actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// An applied payment change moves the ledger, and a contract
	// change moves the deriver's denominator. Either way the
	// project's derived status must follow.
	if change.ModelName == "Payment" || change.ModelName == "Contract" {
		h.recomputeChangeSubject(change)
	}

	c.JSON(http.StatusOK, gin.H{"message": "change applied", "status": change.Status})
}

func (h *Handler) RejectPendingChange(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	change, err := h.queue.Reject(actor, id, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "change rejected", "status": change.Status})
}

// recomputeChangeSubject finds the project behind an applied payment
// or contract change and refreshes its status. The project id comes
// from the change payload when present, else from the subject row.
func (h *Handler) recomputeChangeSubject(change *models.PendingChange) {
	if pid, ok := change.Data["project_id"]; ok {
		switch v := pid.(type) {
		case float64:
			h.updater.Recompute(uint(v))
			return
		case uint:
			h.updater.Recompute(v)
			return
		}
	}
	if change.ObjectID == "" {
		return
	}
	id, err := strconv.ParseUint(change.ObjectID, 10, 64)
	if err != nil {
		return
	}
	switch change.ModelName {
	case "Payment":
		var payment models.Payment
		if err := h.db.Unscoped().First(&payment, id).Error; err != nil {
			return
		}
		if payment.ProjectID != nil {
			h.updater.Recompute(*payment.ProjectID)
		}
	case "Contract":
		var contract models.Contract
		if err := h.db.Unscoped().First(&contract, id).Error; err != nil {
			return
		}
		h.updater.Recompute(contract.ProjectID)
	}
}
