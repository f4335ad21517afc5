package handlers

import (
	"law_consult_app/middleware"
	"law_consult_app/models"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the public and authenticated API
func RegisterRoutes(e *echo.Echo, h *Handler, publicLimiter *middleware.RateLimiter) {
	// Public routes (no authentication required)
	public := e.Group("/api")
	{
		public.GET("/lawyers", h.ListLawyersHandler)
		public.GET("/lawyers/:id/availability", h.GetAvailabilityHandler)
		public.GET("/lawyers/:id/slots", h.GetSlotsHandler)
		public.GET("/lawyers/:id/booking-window", h.GetBookingWindowHandler)
		public.POST("/consultations", h.CreateConsultationHandler, publicLimiter.Middleware())
	}

	protected := e.Group("/api")
	protected.Use(middleware.RequireAuth(h.DB, h.Log))
	protected.Use(middleware.RequireRole(models.RoleAdmin, models.RoleLawyer))
	{
		protected.GET("/consultations", h.ListConsultationsHandler)
		protected.GET("/consultations/export", h.ExportConsultationsHandler)
		protected.PUT("/consultations/:id/status", h.UpdateConsultationStatusHandler)

		protected.GET("/schedules", h.ListSchedulesHandler)
		protected.POST("/schedules/weekly", h.AddWeeklyScheduleHandler)
		protected.POST("/schedules/onetime", h.AddOneTimeScheduleHandler)
		protected.POST("/schedules/block", h.BlockDateHandler)
		protected.POST("/schedules/block-range", h.BlockRangeHandler)
		protected.POST("/schedules/unblock", h.BulkUnblockHandler)
		protected.PUT("/schedules/:id/deactivate", h.DeactivateScheduleHandler)
		protected.PUT("/schedules/:id/reactivate", h.ReactivateScheduleHandler)
		protected.DELETE("/schedules/:id", h.DeleteScheduleHandler)

		protected.PUT("/lawyers/:id/booking-window", h.UpdateBookingWindowHandler)

		// Admin-only routes
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/consultations", h.CreateConsultationHandler)
		}
	}
}
