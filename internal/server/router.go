package server

import (
	"net/http"

	"buildtrack/internal/config"
	"buildtrack/internal/handlers"
	"buildtrack/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRouter(cfg *config.Config, db *gorm.DB, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("buildtrack_session", store))
	r.Use(middleware.InjectActor(db))

	h := handlers.New(db, log)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// AUTH
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)

	api := r.Group("/api")
	api.Use(middleware.RequireAuth())

	// PROJECTS
	api.GET("/projects", h.ListProjects)
	api.POST("/projects", h.CreateProject)
	api.GET("/projects/:id", h.GetProject)
	api.PUT("/projects/:id", h.UpdateProject)
	api.GET("/projects/:id/history", h.ProjectHistory)

	// WORKFLOW TRANSITIONS
	api.POST("/projects/:id/submit", h.SubmitProject)
	api.POST("/projects/:id/approve", h.ApproveProject)
	api.POST("/projects/:id/reject", h.RejectProject)
	api.POST("/projects/:id/request_delete", h.RequestProjectDelete)
	api.POST("/projects/:id/approve_delete", h.ApproveProjectDelete)
	api.POST("/projects/:id/final_approve", h.FinalApproveProject)
	api.POST("/projects/:id/move_to_stage", h.MoveProjectToStage)

	// CONTRACT
	api.GET("/projects/:id/contract", h.GetContract)
	api.PUT("/projects/:id/contract", h.PutContract)

	// PAYMENTS
	api.GET("/projects/:id/payments", h.ListPayments)
	api.POST("/projects/:id/payments", h.CreatePayment)
	api.PUT("/projects/:id/payments/:paymentID", h.UpdatePayment)
	api.DELETE("/projects/:id/payments/:paymentID", h.DeletePayment)

	// VARIATIONS (price change orders)
	api.GET("/projects/:id/variations", h.ListVariations)
	api.POST("/projects/:id/variations", h.CreateVariation)
	api.PUT("/projects/:id/variations/:variationID", h.UpdateVariation)
	api.DELETE("/projects/:id/variations/:variationID", h.DeleteVariation)

	// STAGES AND RULES
	api.GET("/stages", h.ListStages)
	api.POST("/stages", h.CreateStage)
	api.PUT("/stages/:id", h.UpdateStage)
	api.GET("/rules", h.ListRules)
	api.POST("/rules", h.CreateRule)

	// PENDING CHANGES
	api.GET("/pending-changes", h.ListPendingChanges)
	api.POST("/pending-changes/:id/approve", h.ApprovePendingChange)
	api.POST("/pending-changes/:id/reject", h.RejectPendingChange)

	// AUDIT
	api.GET("/audit", h.ListAuditLog)

	// ADMIN
	api.POST("/admin/recompute-statuses", h.RecomputeStatuses)

	return r
}
