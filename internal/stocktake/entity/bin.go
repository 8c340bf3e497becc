package entity

// 储位状态
const (
	BinStatusDisabled = "0" // 停用
	BinStatusNormal   = "1" // 正常
	BinStatusInOnly   = "2" // 仅移入
	BinStatusOutOnly  = "3" // 仅移出
	BinStatusFrozen   = "4" // 冻结
)

// 盘点任务状态
const (
	TaskStatusNotStarted = "1" // 未开始
	TaskStatusRunning    = "2" // 进行中
	TaskStatusDone       = "3" // 已完成
	TaskStatusAbnormal   = "4" // 异常
)

// BinTask 任务清单中的一条储位任务（选定时刻的储位快照）
type BinTask struct {
	TaskID      string `json:"taskID"`
	WhCode      string `json:"whCode"`
	AreaCode    string `json:"areaCode"`
	AreaName    string `json:"areaName"`
	BinCode     string `json:"binCode"`
	BinDesc     string `json:"binDesc"`
	MaxQty      int    `json:"maxQty"`
	BinStatus   string `json:"binStatus"`
	ProductQty  int    `json:"productQty"`
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`
	RcsCode     string `json:"rcsCode"`
}

// BinStatusLabel 储位状态中文名
func BinStatusLabel(status string) string {
	switch status {
	case BinStatusDisabled:
		return "停用"
	case BinStatusNormal:
		return "正常"
	case BinStatusInOnly:
		return "仅移入"
	case BinStatusOutOnly:
		return "仅移出"
	case BinStatusFrozen:
		return "冻结"
	default:
		return "未知"
	}
}

// TaskStatusLabel 任务状态中文名
func TaskStatusLabel(status string) string {
	switch status {
	case TaskStatusNotStarted:
		return "未开始"
	case TaskStatusRunning:
		return "进行中"
	case TaskStatusDone:
		return "已完成"
	case TaskStatusAbnormal:
		return "异常"
	default:
		return "未知"
	}
}
