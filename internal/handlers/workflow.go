package handlers

import (
	"net/http"

	"buildtrack/internal/models"
	"buildtrack/internal/workflow"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	Notes string `json:"notes"`
}

type deleteRequest struct {
	Reason string `json:"reason"`
}

type moveRequest struct {
	StageCode string `json:"stage_code"`
}

// transition runs one state machine action and renders the result.
func (h *Handler) transition(c *gin.Context, message string, run func(actor workflow.Actor, id uint) (*models.Project, error)) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := run(actor, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         message,
		"approval_status": project.ApprovalStatus,
	})
}

func (h *Handler) SubmitProject(c *gin.Context) {
	h.transition(c, "project submitted for approval", func(actor workflow.Actor, id uint) (*models.Project, error) {
		return h.machine.Submit(actor, id)
	})
}

func (h *Handler) ApproveProject(c *gin.Context) {
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	h.transition(c, "project approved", func(actor workflow.Actor, id uint) (*models.Project, error) {
		return h.machine.Approve(actor, id, req.Notes)
	})
}

func (h *Handler) RejectProject(c *gin.Context) {
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	h.transition(c, "project rejected", func(actor workflow.Actor, id uint) (*models.Project, error) {
		return h.machine.Reject(actor, id, req.Notes)
	})
}

func (h *Handler) RequestProjectDelete(c *gin.Context) {
	var req deleteRequest
	_ = c.ShouldBindJSON(&req)
	h.transition(c, "project deletion requested", func(actor workflow.Actor, id uint) (*models.Project, error) {
		return h.machine.RequestDelete(actor, id, req.Reason)
	})
}

func (h *Handler) ApproveProjectDelete(c *gin.Context) {
	h.transition(c, "project deleted", func(actor workflow.Actor, id uint) (*models.Project, error) {
		return h.machine.ApproveDelete(actor, id)
	})
}

func (h *Handler) FinalApproveProject(c *gin.Context) {
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	h.transition(c, "project final-approved", func(actor workflow.Actor, id uint) (*models.Project, error) {
		return h.machine.FinalApprove(actor, id, req.Notes)
	})
}

func (h *Handler) MoveProjectToStage(c *gin.Context) {
	var req moveRequest
	_ = c.ShouldBindJSON(&req)
	h.transition(c, "project moved", func(actor workflow.Actor, id uint) (*models.Project, error) {
		return h.machine.MoveToStage(actor, id, req.StageCode)
	})
}
