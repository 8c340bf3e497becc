package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/service"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

// ManifestHandler 任务清单处理器
type ManifestHandler struct {
	svc *service.ManifestService
}

// NewManifestHandler 创建任务清单处理器
func NewManifestHandler(svc *service.ManifestService) *ManifestHandler {
	return &ManifestHandler{svc: svc}
}

// ListBins 获取储位清单
// GET /bins?warehouse=WH001&area=A
func (h *ManifestHandler) ListBins(c *gin.Context) {
	authToken := c.GetHeader("authToken")
	listing, err := h.svc.ListBins(c.Request.Context(), authToken, c.Query("warehouse"), c.Query("area"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, listing)
}

// BuildManifestRequest 构建任务清单请求
type BuildManifestRequest struct {
	TaskNo string              `json:"taskNo"`
	Bins   []gateway.BinRecord `json:"bins" binding:"required"`
}

// Build 构建任务清单
// POST /manifests
func (h *ManifestHandler) Build(c *gin.Context) {
	var req BuildManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	m, err := h.svc.Build(c.Request.Context(), req.TaskNo, req.Bins)
	if err != nil {
		if errors.Is(err, service.ErrEmptySelection) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, m)
}

// Current 获取当前任务清单
// GET /manifests/current
func (h *ManifestHandler) Current(c *gin.Context) {
	m, err := h.svc.Current(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoManifest) {
			NotFound(c, "当前没有任务清单")
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, m)
}

// GenerateTaskNo 签发新任务号
// POST /manifests/task-no
func (h *ManifestHandler) GenerateTaskNo(c *gin.Context) {
	taskNo, err := h.svc.GenerateTaskNo(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"taskNo": taskNo})
}
