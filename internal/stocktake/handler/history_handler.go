package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/service"
)

// HistoryHandler 历史任务处理器
type HistoryHandler struct {
	svc *service.HistoryService
}

// NewHistoryHandler 创建历史任务处理器
func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// ListTasks 历史任务列表
// GET /history/tasks
func (h *HistoryHandler) ListTasks(c *gin.Context) {
	tasks, err := h.svc.ListTasks(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"tasks": tasks, "total": len(tasks)})
}

// TaskDetails 单任务明细
// GET /history/tasks/:taskId
func (h *HistoryHandler) TaskDetails(c *gin.Context) {
	details, err := h.svc.TaskDetails(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			NotFound(c, "历史任务不存在")
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"details": details, "total": len(details)})
}

// Image 历史图片代理
// GET /history/image?taskNo=...&binLocation=...&cameraType=...&filename=...
func (h *HistoryHandler) Image(c *gin.Context) {
	q := gateway.ImageQuery{
		TaskNo:      c.Query("taskNo"),
		BinLocation: c.Query("binLocation"),
		CameraType:  c.Query("cameraType"),
		Filename:    c.Query("filename"),
	}
	if q.TaskNo == "" || q.BinLocation == "" || q.CameraType == "" || q.Filename == "" {
		BadRequest(c, "taskNo、binLocation、cameraType、filename不能为空")
		return
	}

	img, err := h.svc.Image(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			NotFound(c, "图片不存在")
			return
		}
		InternalError(c, err.Error())
		return
	}
	c.Data(200, img.ContentType, img.Data)
}

// CleanupRequest 历史数据清理请求
type CleanupRequest struct {
	CutoffDate string `json:"cutoff_date"`
	Days       int    `json:"days"`
}

// Cleanup 清理历史数据，仅限admin角色
// POST /history/cleanup
func (h *HistoryHandler) Cleanup(c *gin.Context) {
	var req CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Cleanup(c.Request.Context(), req.CutoffDate, req.Days, GetUserID(c), GetUserName(c), c.ClientIP())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, result)
}
