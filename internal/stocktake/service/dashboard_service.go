package service

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

// DashboardService 首页看板：月度盘点量、准确率及环比
type DashboardService struct {
	oplog   *store.OperationLogStore
	refdata *RefDataReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewDashboardService 创建看板服务
func NewDashboardService(oplog *store.OperationLogStore, refdata *RefDataReader, logger *zap.Logger) *DashboardService {
	return &DashboardService{oplog: oplog, refdata: refdata, logger: logger, now: time.Now}
}

// DashboardSummary 看板汇总
type DashboardSummary struct {
	SupportedWarehouses int                        `json:"supportedWarehouses"`
	SupportedCategories int                        `json:"supportedCategories"`
	MonthlyCount        int                        `json:"monthlyCount"`
	MonthlyCountChange  int                        `json:"monthlyCountChange"`
	AccuracyRate        float64                    `json:"accuracyRate"`
	AccuracyChange      float64                    `json:"accuracyChange"`
	RecentLogs          []entity.OperationLogEntry `json:"recentLogs"`
}

// Summary 计算看板汇总。按自然月切分本月与上月，
// 准确率只对带准确率明细的条目求均值，缺失不按100计
func (s *DashboardService) Summary(ctx context.Context) *DashboardSummary {
	logs := s.oplog.List(ctx, 0)
	now := s.now()

	curYear, curMonth, _ := now.Date()
	prevMonthTime := now.AddDate(0, -1, 0)
	prevYear, prevMonth, _ := prevMonthTime.Date()

	var curEntries, prevEntries []entity.OperationLogEntry
	for _, e := range logs {
		if !isCompletedInventory(e) {
			continue
		}
		y, m, _ := e.Timestamp.Date()
		switch {
		case y == curYear && m == curMonth:
			curEntries = append(curEntries, e)
		case y == prevYear && m == prevMonth:
			prevEntries = append(prevEntries, e)
		}
	}

	warehouses, categories := s.refdata.Counts()

	curAccuracy := averageAccuracy(curEntries)
	prevAccuracy := averageAccuracy(prevEntries)

	return &DashboardSummary{
		SupportedWarehouses: warehouses,
		SupportedCategories: categories,
		MonthlyCount:        len(curEntries),
		MonthlyCountChange:  len(curEntries) - len(prevEntries),
		AccuracyRate:        curAccuracy,
		AccuracyChange:      round1(curAccuracy - prevAccuracy),
		RecentLogs:          s.oplog.List(ctx, 10),
	}
}

func isCompletedInventory(e entity.OperationLogEntry) bool {
	return e.OperationType == entity.OpTypeInventory && strings.Contains(e.Action, "完成")
}

// averageAccuracy 只统计带accuracy明细的条目，没有时按100
func averageAccuracy(entries []entity.OperationLogEntry) float64 {
	sum := 0.0
	count := 0
	for _, e := range entries {
		if e.Details == nil {
			continue
		}
		if v, ok := numericDetail(e.Details["accuracy"]); ok {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 100
	}
	return round1(sum / float64(count))
}

// numericDetail 明细经过JSON往返后数值类型不定
func numericDetail(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
