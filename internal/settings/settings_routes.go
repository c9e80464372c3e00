package settings

import (
	"picktrack/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	group := r.Group("/settings")
	group.Use(middleware.RequireRole("admin", "warehouse_manager"))
	{
		group.GET("", h.List)
		group.PUT("/:key", h.Update)
	}
}
