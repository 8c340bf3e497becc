package gateway

import (
	"context"
	"errors"
)

// 图片源目录
const (
	ImageSourceCapture = "capture_img" // 原始采集图
	ImageSourceOutput  = "output"      // 后处理图
)

// ErrNotFound 网关侧资源不存在（任务、图片、明细）
var ErrNotFound = errors.New("gateway: not found")

// BinRecord LMS储位行。字段名与LMS接口保持一致
type BinRecord struct {
	WhCode     string `json:"whCode"`
	AreaCode   string `json:"areaCode"`
	AreaName   string `json:"areaName"`
	BinCode    string `json:"binCode"`
	BinDesc    string `json:"binDesc"`
	MaxQty     int    `json:"maxQty"`
	BinStatus  string `json:"binStatus"`
	TobaccoQty int    `json:"tobaccoQty"`
	// LMS侧品规字段沿用烟草命名
	TobaccoCode string `json:"tobaccoCode"`
	TobaccoName string `json:"tobaccoName"`
	RcsCode     string `json:"rcsCode"`
}

// StartResult 下发盘点任务的结果
type StartResult struct {
	Code           int    `json:"code"`
	Message        string `json:"message"`
	AlreadyRunning bool   `json:"alreadyRunning"`
}

// ScanResult 扫码识别的结果，照片为网关相对路径
type ScanResult struct {
	TaskNo      string   `json:"taskNo"`
	BinLocation string   `json:"binLocation"`
	Photos      []string `json:"photos"`
}

// ImageQuery 图片定位参数
type ImageQuery struct {
	TaskNo      string
	BinLocation string
	CameraType  string
	Filename    string
	Source      string
}

// ImageData 图片二进制与媒体类型
type ImageData struct {
	Data        []byte
	ContentType string
}

// HistoryTaskRecord 历史任务行
type HistoryTaskRecord struct {
	TaskID    string `json:"taskId"`
	TaskDate  string `json:"taskDate"`
	FileName  string `json:"fileName"`
	IsExpired bool   `json:"isExpired"`
}

// DetailRecord 历史明细行。网关返回中文列名
type DetailRecord struct {
	Seq            int    `json:"序号"`
	ProductName    string `json:"品规名称"`
	LocationName   string `json:"储位名称"`
	ActualProduct  string `json:"实际品规"`
	SystemQuantity int    `json:"库存数量"`
	ActualQuantity int    `json:"实际数量"`
	Difference     int    `json:"差异"`
	Photo1Path     string `json:"照片1路径"`
	Photo2Path     string `json:"照片2路径"`
	Photo3Path     string `json:"照片3路径"`
	Photo4Path     string `json:"照片4路径"`
}

// PhotoPaths 四路照片路径，保持顺序
func (d *DetailRecord) PhotoPaths() []string {
	return []string{d.Photo1Path, d.Photo2Path, d.Photo3Path, d.Photo4Path}
}

// CleanupResult 历史数据清理结果
type CleanupResult struct {
	CleanedCount  int    `json:"cleaned_count"`
	CutoffDate    string `json:"cutoff_date"`
	RetentionDays int    `json:"retention_days"`
}

// TaskResult 上报给LMS的单行盘点结果
type TaskResult struct {
	TaskDetailID string `json:"taskDetailId"`
	ItemID       string `json:"itemId"`
	CountQty     int    `json:"countQty"`
}

// InventoryGateway 识别网关。真实实现走HTTP，
// mock实现用于演示和测试，由配置选择
type InventoryGateway interface {
	ListBins(ctx context.Context, authToken string) ([]BinRecord, error)
	StartInventory(ctx context.Context, taskNo string, binLocations, tobaccoCodes, rcsCodes []string) (*StartResult, error)
	ScanAndRecognize(ctx context.Context, taskNo, binLocation string) (*ScanResult, error)
	InventoryImage(ctx context.Context, q ImageQuery) (*ImageData, error)
	HistoryTasks(ctx context.Context) ([]HistoryTaskRecord, error)
	HistoryTaskDetails(ctx context.Context, taskID string) ([]DetailRecord, error)
	HistoryImage(ctx context.Context, q ImageQuery) (*ImageData, error)
	CleanupHistory(ctx context.Context, cutoffDate string, days int) (*CleanupResult, error)
	SetTaskResults(ctx context.Context, authToken string, results []TaskResult) error
}
