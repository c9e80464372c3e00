package reports

import (
	"picktrack/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	group := r.Group("/reports")
	group.Use(middleware.RequireRole("admin", "warehouse_manager"))
	{
		group.GET("/shifts", h.ExportShifts)
	}
}
