package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
)

// ErrNoManifest 当前没有任务清单
var ErrNoManifest = errors.New("store: no current manifest")

// ManifestStore 任务清单与任务号计数器的持久化。
// 清单单槽存储，后写覆盖
type ManifestStore struct {
	kv KVStore
}

// NewManifestStore 创建任务清单存储
func NewManifestStore(kv KVStore) *ManifestStore {
	return &ManifestStore{kv: kv}
}

// SaveManifest 写入当前任务清单，同时更新当前任务号
func (s *ManifestStore) SaveManifest(ctx context.Context, m *entity.TaskManifest) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("序列化任务清单失败: %w", err)
	}
	if err := s.kv.Set(ctx, KeyCurrentManifest, raw); err != nil {
		return fmt.Errorf("保存任务清单失败: %w", err)
	}
	if err := s.kv.Set(ctx, KeyCurrentTaskNo, []byte(m.TaskNo)); err != nil {
		return fmt.Errorf("保存当前任务号失败: %w", err)
	}
	return nil
}

// CurrentManifest 读取当前任务清单。槽位为空返回ErrNoManifest
func (s *ManifestStore) CurrentManifest(ctx context.Context) (*entity.TaskManifest, error) {
	raw, err := s.kv.Get(ctx, KeyCurrentManifest)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrNoManifest
		}
		return nil, fmt.Errorf("读取任务清单失败: %w", err)
	}
	var m entity.TaskManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("任务清单数据损坏: %w", err)
	}
	return &m, nil
}

// CurrentTaskNo 读取当前任务号。未设置返回空串
func (s *ManifestStore) CurrentTaskNo(ctx context.Context) (string, error) {
	raw, err := s.kv.Get(ctx, KeyCurrentTaskNo)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(raw), nil
}

// NextDailySequence 推进并返回指定日期的任务号序号，从1开始。
// 每个日期独立计数，跨日自然归零
func (s *ManifestStore) NextDailySequence(ctx context.Context, dateStr string) (int, error) {
	key := KeyTaskSeqPrefix + dateStr
	seq := 0
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			return 0, fmt.Errorf("读取任务号计数器失败: %w", err)
		}
	} else if v, convErr := strconv.Atoi(string(raw)); convErr == nil {
		seq = v
	}
	seq++
	if err := s.kv.Set(ctx, key, []byte(strconv.Itoa(seq))); err != nil {
		return 0, fmt.Errorf("更新任务号计数器失败: %w", err)
	}
	return seq, nil
}
