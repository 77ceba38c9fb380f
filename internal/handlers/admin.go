package handlers

import (
	"net/http"

	"buildtrack/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecomputeStatuses re-derives the operational status of every project
// from its ledger. Used after bulk imports or threshold changes.
func (h *Handler) RecomputeStatuses(c *gin.Context) {
	if !h.platformOnly(c) {
		return
	}

	var projects []models.Project
	if err := h.db.Select("id", "status").Find(&projects).Error; err != nil {
		h.respondError(c, err)
		return
	}

	changed := 0
	for _, p := range projects {
		if h.updater.Recompute(p.ID) != p.Status {
			changed++
		}
	}
	h.log.Info("status recompute finished",
		zap.Int("projects", len(projects)),
		zap.Int("changed", changed))

	c.JSON(http.StatusOK, gin.H{"projects": len(projects), "changed": changed})
}
