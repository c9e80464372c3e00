package shift

import (
	"picktrack/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	shifts := r.Group("/shifts")
	{
		shifts.POST("/check-in", h.CheckIn)
		shifts.POST("/check-out", h.CheckOut)
		shifts.GET("/active", h.GetActive)

		admin := middleware.RequireRole("admin", "warehouse_manager")
		shifts.GET("", admin, h.List)
		shifts.GET("/:id", admin, h.GetDetail)
		shifts.PATCH("/:id", admin, h.Adjust)
		shifts.POST("/:id/checkout", admin, h.ForceCheckout)
	}

	breaks := r.Group("/breaks")
	{
		breaks.POST("/start", h.StartBreak)
		breaks.POST("/end", h.EndBreak)
		breaks.GET("/active", h.ActiveBreak)
	}

	r.POST("/activities", h.RecordActivity)
}
