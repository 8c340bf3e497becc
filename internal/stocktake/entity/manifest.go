package entity

import "time"

// 任务清单状态
const (
	ManifestStatusPending    = "pending"
	ManifestStatusInProgress = "in_progress"
	ManifestStatusCompleted  = "completed"
)

// ManifestStats 清单汇总指标，仅由tasks推导
type ManifestStats struct {
	TotalBins       int `json:"totalBins"`
	TotalQuantity   int `json:"totalQuantity"`
	UniqueItems     int `json:"uniqueItems"`
	UniqueLocations int `json:"uniqueLocations"`
}

// TaskManifest 盘点任务清单。构建后不可变，单槽存储，后写覆盖
type TaskManifest struct {
	ID        string        `json:"id"`
	TaskNo    string        `json:"taskNo"`
	CreatedAt time.Time     `json:"createdAt"`
	Tasks     []BinTask     `json:"tasks"`
	Status    string        `json:"status"`
	Stats     ManifestStats `json:"stats"`
}

// ComputeStats 从任务列表推导汇总指标
// uniqueItems按品规编码去重，uniqueLocations按储位编码去重
func ComputeStats(tasks []BinTask) ManifestStats {
	items := make(map[string]struct{})
	locations := make(map[string]struct{})
	total := 0
	for _, t := range tasks {
		total += t.ProductQty
		if t.ProductCode != "" {
			items[t.ProductCode] = struct{}{}
		}
		locations[t.BinCode] = struct{}{}
	}
	return ManifestStats{
		TotalBins:       len(tasks),
		TotalQuantity:   total,
		UniqueItems:     len(items),
		UniqueLocations: len(locations),
	}
}
