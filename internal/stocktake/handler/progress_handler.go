package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/service"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

// ProgressHandler 盘点执行处理器
type ProgressHandler struct {
	svc *service.ProgressService
}

// NewProgressHandler 创建盘点执行处理器
func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Snapshot 获取当前会话快照
// GET /progress
func (h *ProgressHandler) Snapshot(c *gin.Context) {
	Success(c, h.svc.Snapshot())
}

// Load 从清单槽加载盘点会话
// POST /progress/load
func (h *ProgressHandler) Load(c *gin.Context) {
	snap, err := h.svc.LoadManifest(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrNoManifest) {
			NotFound(c, "当前没有任务清单，请先创建盘点任务")
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, snap)
}

// Dispatch 下发盘点任务
// POST /progress/dispatch
func (h *ProgressHandler) Dispatch(c *gin.Context) {
	result, err := h.svc.Dispatch(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession):
			BadRequest(c, err.Error())
		case errors.Is(err, service.ErrDispatchInProgress):
			Conflict(c, err.Error())
		default:
			InternalError(c, err.Error())
		}
		return
	}
	Success(c, result)
}

// Compute 对单行执行计算
// POST /progress/rows/:rowId/compute
func (h *ProgressHandler) Compute(c *gin.Context) {
	result, err := h.svc.Compute(c.Request.Context(), c.Param("rowId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRowNotFound):
			NotFound(c, err.Error())
		case errors.Is(err, service.ErrNotDispatched):
			BadRequest(c, err.Error())
		case errors.Is(err, service.ErrStaleCompute):
			Conflict(c, err.Error())
		default:
			InternalError(c, err.Error())
		}
		return
	}
	Success(c, result)
}

// SetQuantityRequest 人工修正请求
type SetQuantityRequest struct {
	Quantity *int `json:"quantity"`
	Confirm  bool `json:"confirm"`
}

// SetQuantity 人工修正实际数量
// PUT /progress/rows/:rowId/quantity
func (h *ProgressHandler) SetQuantity(c *gin.Context) {
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	outcome, err := h.svc.SetQuantity(c.Request.Context(), c.Param("rowId"), req.Quantity, req.Confirm)
	if err != nil {
		if errors.Is(err, service.ErrRowNotFound) {
			NotFound(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, outcome)
}

// Image 行级验证图片代理
// GET /progress/rows/:rowId/image?cameraType=3d_camera&filename=MAIN&source=output
func (h *ProgressHandler) Image(c *gin.Context) {
	q := gateway.ImageQuery{
		CameraType: c.Query("cameraType"),
		Filename:   c.Query("filename"),
		Source:     c.Query("source"),
	}
	if q.CameraType == "" || q.Filename == "" {
		BadRequest(c, "cameraType和filename不能为空")
		return
	}

	img, err := h.svc.Image(c.Request.Context(), c.Param("rowId"), q)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRowNotFound):
			NotFound(c, err.Error())
		case errors.Is(err, gateway.ErrNotFound):
			NotFound(c, "图片不存在")
		default:
			InternalError(c, err.Error())
		}
		return
	}
	c.Data(200, img.ContentType, img.Data)
}

// Statistics 统计数据
// GET /progress/statistics
func (h *ProgressHandler) Statistics(c *gin.Context) {
	Success(c, h.svc.Statistics())
}

// Save 保存盘点结果
// POST /progress/save
func (h *ProgressHandler) Save(c *gin.Context) {
	result, err := h.svc.Save(c.Request.Context(), GetUserID(c), GetUserName(c), c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession), errors.Is(err, service.ErrNotAllCounted):
			BadRequest(c, err.Error())
		default:
			InternalError(c, err.Error())
		}
		return
	}
	Success(c, result)
}

// Upload 上报盘点结果到LMS
// POST /progress/upload
func (h *ProgressHandler) Upload(c *gin.Context) {
	authToken := c.GetHeader("authToken")
	if authToken == "" {
		BadRequest(c, "缺少authToken")
		return
	}

	result, err := h.svc.Upload(c.Request.Context(), authToken)
	if err != nil {
		if errors.Is(err, service.ErrNoCountedRows) {
			BadRequest(c, err.Error())
			return
		}
		InternalError(c, err.Error())
		return
	}
	Success(c, result)
}

// IngestResult 接收网关上报的识别结果
// POST /webhooks/recognition
func (h *ProgressHandler) IngestResult(c *gin.Context) {
	var res entity.RecognitionResult
	if err := c.ShouldBindJSON(&res); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if res.TaskNo == "" || res.BinLocation == "" {
		BadRequest(c, "taskNo和binLocation不能为空")
		return
	}

	outcome, err := h.svc.Ingest(c.Request.Context(), res)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, outcome)
}
