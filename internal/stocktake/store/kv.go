package store

import (
	"context"
	"errors"
)

// 会话状态的固定键位
const (
	KeyCurrentManifest = "stocktake:current_task_manifest"
	KeyCurrentTaskNo   = "stocktake:current_task_no"
	KeyOperationLogs   = "stocktake:operation_logs"
	KeyTaskSeqPrefix   = "stocktake:task_no_index:"
)

// ErrKeyNotFound 键不存在
var ErrKeyNotFound = errors.New("store: key not found")

// KVStore 键值存储抽象。盘点工作流的本地状态
// （任务清单槽、任务号计数器、操作日志）都通过它持久化，
// 后端可选 redis / postgres / sqlite / memory
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
