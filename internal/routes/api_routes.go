package routes

import (
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/handlers"
	"github.com/mbzzzzz/axis-crm-v1-sub003/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterAPIRoutes wires up all authenticated API routes plus the
// cron-secret-guarded billing triggers.
func RegisterAPIRoutes(r *gin.Engine) {
	// Scheduled triggers: authenticated by the shared cron secret, not a user
	// session. Kept outside the /api group so the external scheduler needs no
	// JWT.
	cron := r.Group("/cron", middleware.CronAuthMiddleware())
	{
		cron.POST("/billing/run-recurring", handlers.RunRecurringGenerationHandler)
		cron.POST("/billing/late-fee-sweep", handlers.LateFeeSweepHandler)
	}

	api := r.Group("/api", middleware.AuthMiddleware())
	{
		billing := api.Group("/billing")
		{
			// Manual replay, scoped to the caller's own templates.
			billing.POST("/run-recurring", handlers.RunRecurringGenerationHandler)
		}

		invoices := api.Group("/invoices")
		{
			invoices.POST("/submit", handlers.SubmitInvoiceHandler)
			invoices.GET("", handlers.ListInvoicesHandler)
			invoices.GET("/register/export", handlers.ExportInvoiceRegisterHandler)
			invoices.GET("/:id", handlers.GetInvoiceHandler)
			invoices.GET("/:id/late-fee", handlers.PreviewLateFeeHandler)
			invoices.POST("/:id/late-fee", handlers.ApplyLateFeeHandler)
		}

		templates := api.Group("/recurring-templates")
		{
			templates.POST("", handlers.CreateTemplateHandler)
			templates.GET("", handlers.ListTemplatesHandler)
			templates.PUT("/:id", handlers.UpdateTemplateHandler)
		}

		policies := api.Group("/late-fee-policies")
		{
			policies.POST("", handlers.CreatePolicyHandler)
			policies.GET("", handlers.ListPoliciesHandler)
			policies.DELETE("/:id", handlers.DeletePolicyHandler)
		}
	}
}
