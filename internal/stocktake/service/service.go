package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/config"
	"github.com/leafdepot/stocktake/internal/stocktake/archive"
	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

// Services 服务集合
type Services struct {
	Manifest  *ManifestService
	Progress  *ProgressService
	Dashboard *DashboardService
	History   *HistoryService
	OpLog     *store.OperationLogStore
}

// NewServices 创建服务集合
func NewServices(gw gateway.InventoryGateway, kv store.KVStore, arch *archive.PhotoArchive, cfg *config.Config, logger *zap.Logger) *Services {
	manifests := store.NewManifestStore(kv)
	oplog := store.NewOperationLogStore(kv, logger)
	refdata := NewRefDataReader(cfg.RefData.WarehouseFile, cfg.RefData.CategoryFile, logger)
	recognizer := EchoRecognizer{Delay: 800 * time.Millisecond}

	return &Services{
		Manifest:  NewManifestService(gw, manifests, logger),
		Progress:  NewProgressService(gw, manifests, oplog, recognizer, arch, logger),
		Dashboard: NewDashboardService(oplog, refdata, logger),
		History:   NewHistoryService(gw, oplog, logger),
		OpLog:     oplog,
	}
}
