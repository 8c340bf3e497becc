package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

// OpLogHandler 操作日志处理器
type OpLogHandler struct {
	store *store.OperationLogStore
}

// NewOpLogHandler 创建操作日志处理器
func NewOpLogHandler(s *store.OperationLogStore) *OpLogHandler {
	return &OpLogHandler{store: s}
}

// List 获取操作日志
// GET /operation-logs?limit=20
func (h *OpLogHandler) List(c *gin.Context) {
	logs := h.store.List(c.Request.Context(), GetLimit(c, 20))
	Success(c, gin.H{"logs": logs, "total": len(logs)})
}

// Remove 删除单条日志
// DELETE /operation-logs/:id
func (h *OpLogHandler) Remove(c *gin.Context) {
	if !h.store.Remove(c.Request.Context(), c.Param("id")) {
		NotFound(c, "日志不存在")
		return
	}
	Success(c, nil)
}

// Clear 清空日志
// DELETE /operation-logs
func (h *OpLogHandler) Clear(c *gin.Context) {
	h.store.Clear(c.Request.Context())
	Success(c, nil)
}

// PurgeRequest 按天清理请求
type PurgeRequest struct {
	Days int `json:"days" binding:"required,gt=0"`
}

// Purge 删除早于指定天数的日志
// POST /operation-logs/purge
func (h *OpLogHandler) Purge(c *gin.Context) {
	var req PurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	removed := h.store.PurgeOlderThan(c.Request.Context(), req.Days)
	Success(c, gin.H{"removed": removed})
}
