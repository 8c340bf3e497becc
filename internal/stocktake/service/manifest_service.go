package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

// ErrEmptySelection 未选择任何储位
var ErrEmptySelection = errors.New("请先选择储位")

// ManifestService 任务清单服务：储位拉取、清单构建、任务号签发
type ManifestService struct {
	gw        gateway.InventoryGateway
	manifests *store.ManifestStore
	logger    *zap.Logger
	now       func() time.Time
}

// NewManifestService 创建任务清单服务
func NewManifestService(gw gateway.InventoryGateway, manifests *store.ManifestStore, logger *zap.Logger) *ManifestService {
	return &ManifestService{gw: gw, manifests: manifests, logger: logger, now: time.Now}
}

// BinListing 储位列表。Degraded为真表示网关不可达，
// 返回的是演示数据
type BinListing struct {
	Bins     []gateway.BinRecord `json:"bins"`
	Degraded bool                `json:"degraded"`
}

// ListBins 拉取储位清单，可按仓库和库区过滤。
// 网关失败时降级到演示数据，不向上抛错
func (s *ManifestService) ListBins(ctx context.Context, authToken, warehouse, area string) (*BinListing, error) {
	bins, err := s.gw.ListBins(ctx, authToken)
	degraded := false
	if err != nil {
		s.logger.Warn("拉取储位清单失败，使用演示数据", zap.Error(err))
		bins = gateway.DefaultBins()
		degraded = true
	}

	filtered := make([]gateway.BinRecord, 0, len(bins))
	for _, b := range bins {
		if warehouse != "" && b.WhCode != warehouse {
			continue
		}
		if area != "" && b.AreaCode != area {
			continue
		}
		filtered = append(filtered, b)
	}
	return &BinListing{Bins: filtered, Degraded: degraded}, nil
}

// GenerateTaskNo 签发任务号：HS + 日期 + 当日两位序号。
// 序号按天独立计数，跨日重置
func (s *ManifestService) GenerateTaskNo(ctx context.Context) (string, error) {
	dateStr := s.now().Format("20060102")
	seq, err := s.manifests.NextDailySequence(ctx, dateStr)
	if err != nil {
		return "", fmt.Errorf("生成任务号失败: %w", err)
	}
	return fmt.Sprintf("HS%s%02d", dateStr, seq), nil
}

// Build 构建任务清单并写入单槽存储。空选择直接拒绝，
// 汇总指标只从任务行推导；taskNo为空时自动签发
func (s *ManifestService) Build(ctx context.Context, taskNo string, bins []gateway.BinRecord) (*entity.TaskManifest, error) {
	if len(bins) == 0 {
		return nil, ErrEmptySelection
	}

	if taskNo == "" {
		generated, err := s.GenerateTaskNo(ctx)
		if err != nil {
			return nil, err
		}
		taskNo = generated
	}

	tasks := make([]entity.BinTask, 0, len(bins))
	for i, b := range bins {
		tasks = append(tasks, entity.BinTask{
			TaskID:      fmt.Sprintf("%s_%d", taskNo, i+1),
			WhCode:      b.WhCode,
			AreaCode:    b.AreaCode,
			AreaName:    b.AreaName,
			BinCode:     b.BinCode,
			BinDesc:     b.BinDesc,
			MaxQty:      b.MaxQty,
			BinStatus:   b.BinStatus,
			ProductQty:  b.TobaccoQty,
			ProductCode: b.TobaccoCode,
			ProductName: b.TobaccoName,
			RcsCode:     b.RcsCode,
		})
	}

	m := &entity.TaskManifest{
		ID:        uuid.New().String()[:32],
		TaskNo:    taskNo,
		CreatedAt: s.now(),
		Tasks:     tasks,
		Status:    entity.ManifestStatusPending,
		Stats:     entity.ComputeStats(tasks),
	}

	if err := s.manifests.SaveManifest(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("任务清单已构建",
		zap.String("task_no", taskNo),
		zap.Int("bins", len(tasks)))
	return m, nil
}

// Current 读取当前任务清单
func (s *ManifestService) Current(ctx context.Context) (*entity.TaskManifest, error) {
	return s.manifests.CurrentManifest(ctx)
}
