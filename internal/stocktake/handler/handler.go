package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/leafdepot/stocktake/internal/stocktake/service"
)

// Handlers 处理器集合
type Handlers struct {
	Manifest  *ManifestHandler
	Progress  *ProgressHandler
	Dashboard *DashboardHandler
	History   *HistoryHandler
	OpLog     *OpLogHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svcs *service.Services) *Handlers {
	return &Handlers{
		Manifest:  NewManifestHandler(svcs.Manifest),
		Progress:  NewProgressHandler(svcs.Progress),
		Dashboard: NewDashboardHandler(svcs.Dashboard),
		History:   NewHistoryHandler(svcs.History),
		OpLog:     NewOpLogHandler(svcs.OpLog),
	}
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetUserName(c *gin.Context) string {
	userName, _ := c.Get("user_name")
	if name, ok := userName.(string); ok {
		return name
	}
	return ""
}

// GetLimit 解析limit查询参数，非法值用默认值
func GetLimit(c *gin.Context, fallback int) int {
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
