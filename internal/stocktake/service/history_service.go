package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

// 历史数据默认保留天数
const defaultRetentionDays = 180

// HistoryService 历史任务浏览与清理
type HistoryService struct {
	gw     gateway.InventoryGateway
	oplog  *store.OperationLogStore
	logger *zap.Logger
	now    func() time.Time
}

// NewHistoryService 创建历史任务服务
func NewHistoryService(gw gateway.InventoryGateway, oplog *store.OperationLogStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{gw: gw, oplog: oplog, logger: logger, now: time.Now}
}

// ListTasks 历史任务列表。网关标记过期的条目直接丢弃
func (s *HistoryService) ListTasks(ctx context.Context) ([]entity.HistoryTask, error) {
	records, err := s.gw.HistoryTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取历史任务失败: %w", err)
	}

	tasks := make([]entity.HistoryTask, 0, len(records))
	for _, r := range records {
		if r.IsExpired {
			continue
		}
		tasks = append(tasks, entity.HistoryTask{
			TaskID:   r.TaskID,
			TaskDate: parseTaskDate(r.TaskDate, r.TaskID),
			FileName: r.FileName,
		})
	}
	return tasks, nil
}

// TaskDetails 单任务明细行，照片路径转换为本服务的图片代理地址，
// 畸形路径丢弃
func (s *HistoryService) TaskDetails(ctx context.Context, taskID string) ([]entity.InventoryDetail, error) {
	records, err := s.gw.HistoryTaskDetails(ctx, taskID)
	if err != nil {
		return nil, err
	}

	details := make([]entity.InventoryDetail, 0, len(records))
	for _, r := range records {
		d := entity.InventoryDetail{
			Seq:            r.Seq,
			ProductName:    r.ProductName,
			LocationName:   r.LocationName,
			ActualProduct:  r.ActualProduct,
			SystemQuantity: r.SystemQuantity,
			ActualQuantity: r.ActualQuantity,
			Difference:     r.Difference,
		}
		for _, p := range r.PhotoPaths() {
			if p == "" {
				continue
			}
			if u := BuildHistoryImageURL(taskID, r.LocationName, p); u != "" {
				d.PhotoURLs = append(d.PhotoURLs, u)
			}
		}
		details = append(details, d)
	}
	return details, nil
}

// Image 历史图片代理
func (s *HistoryService) Image(ctx context.Context, q gateway.ImageQuery) (*gateway.ImageData, error) {
	return s.gw.HistoryImage(ctx, q)
}

// Cleanup 清理历史数据。成败都写操作日志
func (s *HistoryService) Cleanup(ctx context.Context, cutoffDate string, days int, userID, userName, ip string) (*gateway.CleanupResult, error) {
	if days <= 0 {
		days = defaultRetentionDays
	}

	result, err := s.gw.CleanupHistory(ctx, cutoffDate, days)

	entry := entity.OperationLogEntry{
		OperationType: entity.OpTypeSystem,
		UserID:        userID,
		UserName:      userName,
		Action:        "清理历史数据",
		Status:        entity.OpStatusSuccess,
		IPAddress:     ip,
		Details: map[string]interface{}{
			"retention_days": days,
		},
	}
	if err != nil {
		entry.Status = entity.OpStatusFailed
		entry.Details["error"] = err.Error()
		s.oplog.Append(ctx, entry)
		return nil, fmt.Errorf("清理历史数据失败: %w", err)
	}
	entry.Target = result.CutoffDate
	entry.Details["cleaned_count"] = result.CleanedCount
	s.oplog.Append(ctx, entry)

	return result, nil
}

// parseTaskDate 优先用网关给的日期，缺失时从任务号里的
// 8位日期段解析，都拿不到就取零值
func parseTaskDate(dateStr, taskID string) time.Time {
	if dateStr != "" {
		if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", dateStr); err == nil {
			return t
		}
	}
	digits := make([]byte, 0, 8)
	for i := 0; i < len(taskID); i++ {
		if taskID[i] >= '0' && taskID[i] <= '9' {
			digits = append(digits, taskID[i])
			if len(digits) == 8 {
				if t, err := time.Parse("20060102", string(digits)); err == nil {
					return t
				}
				return time.Time{}
			}
		} else {
			digits = digits[:0]
		}
	}
	return time.Time{}
}
