package main

import (
	"database/sql"
	"net/http"
	"time"

	"outreach-dashboard/internal/httpapi"
	"outreach-dashboard/internal/rbac"
	"outreach-dashboard/internal/webhook"
	"outreach-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Keep this file free of business logic. Handlers delegate to internal modules.

func registerPublicRoutes(r *gin.Engine, db *sql.DB, hook webhook.Handler) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider callbacks. Guarded by the shared webhook token when configured.
	r.POST("/api/webhooks/outcome", hook.HandleOutcome)
}

func registerAuthRoutes(r *gin.Engine, h httpapi.Handlers) {
	authGroup := r.Group("/v1/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}
}

func registerProtectedRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireAnyRole(rbac.RoleOperator))
	{
		contacts := v1.Group("/contacts")
		{
			contacts.GET("", h.ListContacts)
			contacts.POST("", h.CreateContacts)
			contacts.PUT("/:id", h.UpdateContact)
			contacts.DELETE("/:id", rbac.RequireAdmin(), h.DeleteContact)
			contacts.POST("/:id/call", h.TriggerCall)
		}

		v1.GET("/logs", h.RecentLogs)

		reports := v1.Group("/reports")
		{
			reports.GET("", h.DailyReport)
			reports.GET("/summary", h.OutcomeSummary)
		}

		v1.DELETE("/archive", rbac.RequireAdmin(), h.Archive)
	}
}
