package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
)

// 日志上限，超出淘汰最旧的
const maxLogEntries = 100

// OperationLogStore 操作日志存储。写入尽力而为：
// 持久化失败只记日志，不影响调用方
type OperationLogStore struct {
	kv     KVStore
	logger *zap.Logger
	now    func() time.Time
}

// NewOperationLogStore 创建操作日志存储
func NewOperationLogStore(kv KVStore, logger *zap.Logger) *OperationLogStore {
	return NewOperationLogStoreWithClock(kv, logger, time.Now)
}

// NewOperationLogStoreWithClock 指定时钟创建，测试用
func NewOperationLogStoreWithClock(kv KVStore, logger *zap.Logger, now func() time.Time) *OperationLogStore {
	return &OperationLogStore{kv: kv, logger: logger, now: now}
}

// Append 追加一条日志。id和时间戳由存储生成，新条目在最前，
// 超过上限截断尾部
func (s *OperationLogStore) Append(ctx context.Context, entry entity.OperationLogEntry) entity.OperationLogEntry {
	now := s.now()
	entry.ID = fmt.Sprintf("%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.New().String(), "-", "")[:9])
	entry.Timestamp = now
	if entry.Status == "" {
		entry.Status = entity.OpStatusSuccess
	}

	logs := s.load(ctx)
	logs = append([]entity.OperationLogEntry{entry}, logs...)
	if len(logs) > maxLogEntries {
		logs = logs[:maxLogEntries]
	}
	s.persist(ctx, logs)
	return entry
}

// List 返回最新的limit条日志。limit<=0返回全部
func (s *OperationLogStore) List(ctx context.Context, limit int) []entity.OperationLogEntry {
	logs := s.load(ctx)
	if limit > 0 && len(logs) > limit {
		return logs[:limit]
	}
	return logs
}

// PurgeOlderThan 删除早于days天的日志，返回删除条数
func (s *OperationLogStore) PurgeOlderThan(ctx context.Context, days int) int {
	cutoff := s.now().AddDate(0, 0, -days)
	logs := s.load(ctx)
	kept := make([]entity.OperationLogEntry, 0, len(logs))
	for _, e := range logs {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(logs) - len(kept)
	if removed > 0 {
		s.persist(ctx, kept)
	}
	return removed
}

// Remove 删除指定id的日志，返回是否删到
func (s *OperationLogStore) Remove(ctx context.Context, id string) bool {
	logs := s.load(ctx)
	kept := make([]entity.OperationLogEntry, 0, len(logs))
	found := false
	for _, e := range logs {
		if e.ID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if found {
		s.persist(ctx, kept)
	}
	return found
}

// Clear 清空全部日志
func (s *OperationLogStore) Clear(ctx context.Context) {
	if err := s.kv.Delete(ctx, KeyOperationLogs); err != nil {
		s.logger.Error("清空操作日志失败", zap.Error(err))
	}
}

func (s *OperationLogStore) load(ctx context.Context) []entity.OperationLogEntry {
	raw, err := s.kv.Get(ctx, KeyOperationLogs)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Error("读取操作日志失败", zap.Error(err))
		}
		return nil
	}
	var logs []entity.OperationLogEntry
	if err := json.Unmarshal(raw, &logs); err != nil {
		s.logger.Error("操作日志数据损坏", zap.Error(err))
		return nil
	}
	return logs
}

func (s *OperationLogStore) persist(ctx context.Context, logs []entity.OperationLogEntry) {
	raw, err := json.Marshal(logs)
	if err != nil {
		s.logger.Error("序列化操作日志失败", zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, KeyOperationLogs, raw); err != nil {
		s.logger.Error("持久化操作日志失败", zap.Error(err))
	}
}
