package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultBins 演示储位数据，网关不可达时的读路径兜底
func DefaultBins() []BinRecord {
	return []BinRecord{
		{WhCode: "WH001", AreaCode: "A", AreaName: "A区", BinCode: "A001", BinDesc: "A区001储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 50, TobaccoCode: "C001", TobaccoName: "黄鹤楼(硬盒)", RcsCode: "RCS001"},
		{WhCode: "WH001", AreaCode: "A", AreaName: "A区", BinCode: "A002", BinDesc: "A区002储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 35, TobaccoCode: "C002", TobaccoName: "玉溪(软盒)", RcsCode: "RCS002"},
		{WhCode: "WH001", AreaCode: "B", AreaName: "B区", BinCode: "B001", BinDesc: "B区001储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 28, TobaccoCode: "C003", TobaccoName: "荷花(细支)", RcsCode: "RCS003"},
		{WhCode: "WH001", AreaCode: "B", AreaName: "B区", BinCode: "B002", BinDesc: "B区002储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 42, TobaccoCode: "C004", TobaccoName: "利群(新版)", RcsCode: "RCS004"},
		{WhCode: "WH002", AreaCode: "A", AreaName: "A区", BinCode: "A001", BinDesc: "二号库A区001储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 60, TobaccoCode: "C005", TobaccoName: "ESSE(蓝盒)", RcsCode: "RCS005"},
		{WhCode: "WH002", AreaCode: "A", AreaName: "A区", BinCode: "A002", BinDesc: "二号库A区002储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 45, TobaccoCode: "C006", TobaccoName: "云烟(印象)", RcsCode: "RCS006"},
		{WhCode: "WH002", AreaCode: "B", AreaName: "B区", BinCode: "B001", BinDesc: "二号库B区001储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 30, TobaccoCode: "C007", TobaccoName: "南京(金陵十二钗)", RcsCode: "RCS007"},
		{WhCode: "WH002", AreaCode: "B", AreaName: "B区", BinCode: "B002", BinDesc: "二号库B区002储位", MaxQty: 100, BinStatus: "1", TobaccoQty: 55, TobaccoCode: "C008", TobaccoName: "红塔山(经典)", RcsCode: "RCS008"},
	}
}

// 占位JPEG，mock网关的图片响应
var placeholderJPEG = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

// Mock 内存网关实现，演示模式和测试用。
// 各Fn字段非nil时覆盖默认行为
type Mock struct {
	mu      sync.Mutex
	started map[string]bool // taskNo → 已下发

	ListBinsFn        func(ctx context.Context, authToken string) ([]BinRecord, error)
	StartInventoryFn  func(ctx context.Context, taskNo string, binLocations, tobaccoCodes, rcsCodes []string) (*StartResult, error)
	ScanFn            func(ctx context.Context, taskNo, binLocation string) (*ScanResult, error)
	InventoryImageFn  func(ctx context.Context, q ImageQuery) (*ImageData, error)
	HistoryTasksFn    func(ctx context.Context) ([]HistoryTaskRecord, error)
	HistoryDetailsFn  func(ctx context.Context, taskID string) ([]DetailRecord, error)
	HistoryImageFn    func(ctx context.Context, q ImageQuery) (*ImageData, error)
	CleanupFn         func(ctx context.Context, cutoffDate string, days int) (*CleanupResult, error)
	SetTaskResultsFn  func(ctx context.Context, authToken string, results []TaskResult) error

	// 记录上报调用，测试断言用
	SubmittedResults [][]TaskResult
}

// NewMock 创建mock网关
func NewMock() *Mock {
	return &Mock{started: make(map[string]bool)}
}

func (m *Mock) ListBins(ctx context.Context, authToken string) ([]BinRecord, error) {
	if m.ListBinsFn != nil {
		return m.ListBinsFn(ctx, authToken)
	}
	return DefaultBins(), nil
}

func (m *Mock) StartInventory(ctx context.Context, taskNo string, binLocations, tobaccoCodes, rcsCodes []string) (*StartResult, error) {
	if m.StartInventoryFn != nil {
		return m.StartInventoryFn(ctx, taskNo, binLocations, tobaccoCodes, rcsCodes)
	}
	if taskNo == "" || len(binLocations) == 0 {
		return nil, fmt.Errorf("任务编号和储位名称列表不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started[taskNo] {
		return &StartResult{Code: 200, Message: msgAlreadyRunning, AlreadyRunning: true}, nil
	}
	m.started[taskNo] = true
	return &StartResult{Code: 200, Message: "盘点任务启动成功"}, nil
}

func (m *Mock) ScanAndRecognize(ctx context.Context, taskNo, binLocation string) (*ScanResult, error) {
	if m.ScanFn != nil {
		return m.ScanFn(ctx, taskNo, binLocation)
	}
	return &ScanResult{
		TaskNo:      taskNo,
		BinLocation: binLocation,
		Photos: []string{
			fmt.Sprintf("/%s/%s/3d_camera/MAIN.jpg", taskNo, binLocation),
			fmt.Sprintf("/%s/%s/depth/COLOR.jpg", taskNo, binLocation),
		},
	}, nil
}

func (m *Mock) InventoryImage(ctx context.Context, q ImageQuery) (*ImageData, error) {
	if m.InventoryImageFn != nil {
		return m.InventoryImageFn(ctx, q)
	}
	return &ImageData{Data: placeholderJPEG, ContentType: "image/jpeg"}, nil
}

func (m *Mock) HistoryTasks(ctx context.Context) ([]HistoryTaskRecord, error) {
	if m.HistoryTasksFn != nil {
		return m.HistoryTasksFn(ctx)
	}
	now := time.Now()
	return []HistoryTaskRecord{
		{TaskID: "HS" + now.Format("20060102") + "01", TaskDate: now.Format(time.RFC3339), FileName: "HS" + now.Format("20060102") + "01.xlsx"},
		{TaskID: "HS" + now.AddDate(0, 0, -7).Format("20060102") + "01", TaskDate: now.AddDate(0, 0, -7).Format(time.RFC3339), FileName: "HS" + now.AddDate(0, 0, -7).Format("20060102") + "01.xlsx"},
	}, nil
}

func (m *Mock) HistoryTaskDetails(ctx context.Context, taskID string) ([]DetailRecord, error) {
	if m.HistoryDetailsFn != nil {
		return m.HistoryDetailsFn(ctx, taskID)
	}
	if !strings.HasPrefix(taskID, "HS") {
		return nil, ErrNotFound
	}
	return []DetailRecord{
		{Seq: 1, ProductName: "黄鹤楼(硬盒)", LocationName: "A区001储位", ActualProduct: "黄鹤楼(硬盒)", SystemQuantity: 50, ActualQuantity: 50, Difference: 0,
			Photo1Path: "/" + taskID + "/A区001储位/3d_camera/MAIN.jpg"},
		{Seq: 2, ProductName: "玉溪(软盒)", LocationName: "A区002储位", ActualProduct: "玉溪(软盒)", SystemQuantity: 35, ActualQuantity: 33, Difference: -2,
			Photo1Path: "/" + taskID + "/A区002储位/3d_camera/MAIN.jpg",
			Photo2Path: "/" + taskID + "/A区002储位/depth/COLOR.jpg"},
	}, nil
}

func (m *Mock) HistoryImage(ctx context.Context, q ImageQuery) (*ImageData, error) {
	if m.HistoryImageFn != nil {
		return m.HistoryImageFn(ctx, q)
	}
	return &ImageData{Data: placeholderJPEG, ContentType: "image/jpeg"}, nil
}

func (m *Mock) CleanupHistory(ctx context.Context, cutoffDate string, days int) (*CleanupResult, error) {
	if m.CleanupFn != nil {
		return m.CleanupFn(ctx, cutoffDate, days)
	}
	if cutoffDate == "" {
		cutoffDate = time.Now().AddDate(0, 0, -days).Format("2006-01-02")
	}
	return &CleanupResult{CleanedCount: 0, CutoffDate: cutoffDate, RetentionDays: days}, nil
}

func (m *Mock) SetTaskResults(ctx context.Context, authToken string, results []TaskResult) error {
	if m.SetTaskResultsFn != nil {
		return m.SetTaskResultsFn(ctx, authToken, results)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmittedResults = append(m.SubmittedResults, results)
	return nil
}
