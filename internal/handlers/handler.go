package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"buildtrack/internal/database"
	"buildtrack/internal/middleware"
	"buildtrack/internal/status"
	"buildtrack/internal/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler carries the shared dependencies of every endpoint.
type Handler struct {
	db      *gorm.DB
	log     *zap.Logger
	machine *workflow.Machine
	queue   *workflow.Queue
	oracle  *workflow.Oracle
	updater *status.Updater
	rec     *database.Recorder
}

func New(db *gorm.DB, log *zap.Logger) *Handler {
	rec := database.NewRecorder(db, log)
	return &Handler{
		db:      db,
		log:     log,
		machine: workflow.NewMachine(db, rec, log),
		queue:   workflow.NewQueue(db, rec, log),
		oracle:  workflow.NewOracle(db),
		updater: status.NewUpdater(db, log),
		rec:     rec,
	}
}

// actor fetches the injected actor or aborts with 401.
func (h *Handler) actor(c *gin.Context) (workflow.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return actor, ok
}

// respondError maps the workflow error taxonomy onto HTTP statuses.
// Everything unclassified is a 500 with no detail leaked.
func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *workflow.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
	case errors.Is(err, workflow.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
