package service

import (
	"context"
	"time"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
)

// Recognizer 数量识别后端，给出某储位的实际数量
type Recognizer interface {
	Resolve(ctx context.Context, item entity.InventoryItem) (int, error)
}

// EchoRecognizer 过渡实现：短暂延迟后回显系统库存数量。
// 真实数量由识别上报覆盖
type EchoRecognizer struct {
	Delay time.Duration
}

func (r EchoRecognizer) Resolve(ctx context.Context, item entity.InventoryItem) (int, error) {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return item.SystemQuantity, nil
}
