package handlers

import (
	"net/http"

	"buildtrack/internal/models"

	"github.com/gin-gonic/gin"
)

const auditPageSize = 200

// ListAuditLog returns the most recent entries, newest first. Visible
// to platform staff and to tenant actors holding the audit permission.
func (h *Handler) ListAuditLog(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if !actor.IsSuperuser && !actor.IsStaff &&
		!actor.IsTenantOwner() && !h.oracle.Holds(actor, models.PermAuditView) {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied: audit log"})
		return
	}

	q := h.db.Model(&models.AuditLog{}).
		Preload("User").Preload("Stage").
		Order("created_at desc").
		Limit(auditPageSize)

	if s := c.Query("model"); s != "" {
		q = q.Where("model_name = ?", s)
	}
	if s := c.Query("action"); s != "" {
		q = q.Where("action = ?", s)
	}
	if s := c.Query("object_id"); s != "" {
		q = q.Where("object_id = ?", s)
	}

	var logs []models.AuditLog
	if err := q.Find(&logs).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
