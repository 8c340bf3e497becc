package entity

import "time"

// HistoryTask 历史任务列表项
type HistoryTask struct {
	TaskID   string    `json:"taskId"`
	TaskDate time.Time `json:"taskDate"`
	FileName string    `json:"fileName,omitempty"`
}

// InventoryDetail 历史任务中的一行盘点明细
// 照片路径最多四路，对应四个相机位
type InventoryDetail struct {
	Seq            int      `json:"seq"`
	ProductName    string   `json:"productName"`
	LocationName   string   `json:"locationName"`
	ActualProduct  string   `json:"actualProduct"`
	SystemQuantity int      `json:"systemQuantity"`
	ActualQuantity int      `json:"actualQuantity"`
	Difference     int      `json:"difference"`
	PhotoURLs      []string `json:"photoUrls"`
}
