package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
)

func TestOperationLogAppendAndList(t *testing.T) {
	ctx := context.Background()
	s := NewOperationLogStore(NewMemoryKV(), zap.NewNop())

	first := s.Append(ctx, entity.OperationLogEntry{
		OperationType: entity.OpTypeInventory,
		Action:        "完成盘点任务",
		Target:        "HS2025010101",
	})
	if first.ID == "" {
		t.Fatal("expected generated id")
	}
	if first.Timestamp.IsZero() {
		t.Fatal("expected generated timestamp")
	}
	if first.Status != entity.OpStatusSuccess {
		t.Fatalf("expected default status success, got %s", first.Status)
	}

	s.Append(ctx, entity.OperationLogEntry{
		OperationType: entity.OpTypeSystem,
		Action:        "清理历史数据",
	})

	logs := s.List(ctx, 0)
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	// Newest first
	if logs[0].Action != "清理历史数据" {
		t.Fatalf("expected newest entry first, got %s", logs[0].Action)
	}

	if got := s.List(ctx, 1); len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}

func TestOperationLogCapsAtLimit(t *testing.T) {
	ctx := context.Background()
	s := NewOperationLogStore(NewMemoryKV(), zap.NewNop())

	for i := 0; i < 105; i++ {
		s.Append(ctx, entity.OperationLogEntry{
			OperationType: entity.OpTypeInventory,
			Action:        "完成盘点任务",
		})
	}

	logs := s.List(ctx, 0)
	if len(logs) != 100 {
		t.Fatalf("expected cap at 100, got %d", len(logs))
	}
}

func TestOperationLogPurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	current := base.AddDate(0, 0, -120)
	s := NewOperationLogStoreWithClock(NewMemoryKV(), zap.NewNop(), func() time.Time {
		return current
	})

	// Four entries 120 days old
	for i := 0; i < 4; i++ {
		s.Append(ctx, entity.OperationLogEntry{OperationType: entity.OpTypeInventory, Action: "完成盘点任务"})
	}
	// Two recent entries
	current = base
	s.Append(ctx, entity.OperationLogEntry{OperationType: entity.OpTypeInventory, Action: "完成盘点任务"})
	s.Append(ctx, entity.OperationLogEntry{OperationType: entity.OpTypeSystem, Action: "清理历史数据"})

	removed := s.PurgeOlderThan(ctx, 90)
	if removed != 4 {
		t.Fatalf("expected 4 removed, got %d", removed)
	}
	if logs := s.List(ctx, 0); len(logs) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(logs))
	}

	// Second purge is a no-op
	if removed := s.PurgeOlderThan(ctx, 90); removed != 0 {
		t.Fatalf("expected 0 removed on second purge, got %d", removed)
	}
}

func TestOperationLogRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewOperationLogStore(NewMemoryKV(), zap.NewNop())

	a := s.Append(ctx, entity.OperationLogEntry{Action: "a"})
	s.Append(ctx, entity.OperationLogEntry{Action: "b"})

	if !s.Remove(ctx, a.ID) {
		t.Fatal("expected remove to find entry")
	}
	if s.Remove(ctx, "missing") {
		t.Fatal("expected remove of unknown id to report false")
	}
	if logs := s.List(ctx, 0); len(logs) != 1 {
		t.Fatalf("expected 1 remaining, got %d", len(logs))
	}

	s.Clear(ctx)
	if logs := s.List(ctx, 0); len(logs) != 0 {
		t.Fatalf("expected empty after clear, got %d", len(logs))
	}
}

// failingKV rejects writes to exercise the best-effort contract
type failingKV struct{ inner KVStore }

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	return errors.New("disk full")
}

func (f *failingKV) Delete(ctx context.Context, key string) error {
	return f.inner.Delete(ctx, key)
}

func TestOperationLogAppendSurvivesPersistFailure(t *testing.T) {
	ctx := context.Background()
	s := NewOperationLogStore(&failingKV{inner: NewMemoryKV()}, zap.NewNop())

	entry := s.Append(ctx, entity.OperationLogEntry{Action: "完成盘点任务"})
	if entry.ID == "" {
		t.Fatal("append must return the entry even when persistence fails")
	}
}
