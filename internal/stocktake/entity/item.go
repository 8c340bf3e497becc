package entity

// 实际数量来源
const (
	SourceManual      = "manual"      // 人工录入
	SourceRecognition = "recognition" // 识别结果回填
	SourceComputed    = "computed"    // 计算流程回填
)

// InventoryItem 盘点会话中的一行
// RowID在会话内唯一；(TaskNo, LocationCode)在会话内唯一，
// 是识别结果的关联键。BackendTaskID是下发给后端的任务号，
// 单独存储，不从TaskNo拆解。
type InventoryItem struct {
	RowID          string `json:"rowId"`
	BackendTaskID  string `json:"backendTaskId"`
	TaskNo         string `json:"taskNo"`
	LocationCode   string `json:"locationCode"`
	LocationName   string `json:"locationName"`
	ProductCode    string `json:"productCode"`
	ProductName    string `json:"productName"`
	Specification  string `json:"specification"`
	Unit           string `json:"unit"`
	SystemQuantity int    `json:"systemQuantity"`
	ActualQuantity *int   `json:"actualQuantity"` // nil = 未盘点
	Source         string `json:"source,omitempty"`

	// 储位透传信息
	WhCode    string `json:"whCode,omitempty"`
	AreaCode  string `json:"areaCode,omitempty"`
	AreaName  string `json:"areaName,omitempty"`
	BinStatus string `json:"binStatus,omitempty"`
	RcsCode   string `json:"rcsCode,omitempty"`
}

// Counted 该行是否已有实际数量
func (it *InventoryItem) Counted() bool {
	return it.ActualQuantity != nil
}

// Abnormal 实际数量与系统库存不一致
func (it *InventoryItem) Abnormal() bool {
	return it.ActualQuantity != nil && *it.ActualQuantity != it.SystemQuantity
}

// AbnormalItem 异常差异项
type AbnormalItem struct {
	TaskNo   string `json:"taskNo"`
	Location string `json:"location"`
	Expected int    `json:"expected"`
	Actual   int    `json:"actual"`
}

// Statistics 盘点完成统计快照
type Statistics struct {
	TotalTimeMillis int64          `json:"totalTimeMillis"`
	CompletedCount  int            `json:"completedCount"`
	AbnormalItems   []AbnormalItem `json:"abnormalItems"`
	AccuracyRate    float64        `json:"accuracyRate"`
}

// DispatchState 任务下发状态机
type DispatchState string

const (
	DispatchNotStarted  DispatchState = "not_started"
	DispatchDispatching DispatchState = "dispatching"
	DispatchStarted     DispatchState = "started"
	DispatchFailed      DispatchState = "failed"
)

// CanTransition 下发状态迁移表
// not_started → dispatching → started | failed；failed可重试回dispatching
func (s DispatchState) CanTransition(to DispatchState) bool {
	switch s {
	case DispatchNotStarted:
		return to == DispatchDispatching
	case DispatchDispatching:
		return to == DispatchStarted || to == DispatchFailed
	case DispatchFailed:
		return to == DispatchDispatching
	default:
		return false
	}
}
