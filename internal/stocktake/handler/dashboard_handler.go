package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/leafdepot/stocktake/internal/stocktake/service"
)

// DashboardHandler 看板处理器
type DashboardHandler struct {
	svc *service.DashboardService
}

// NewDashboardHandler 创建看板处理器
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Summary 看板汇总
// GET /dashboard/summary
func (h *DashboardHandler) Summary(c *gin.Context) {
	Success(c, h.svc.Summary(c.Request.Context()))
}
