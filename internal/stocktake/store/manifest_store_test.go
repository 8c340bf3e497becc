package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leafdepot/stocktake/internal/stocktake/entity"
)

func TestManifestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewManifestStore(NewMemoryKV())

	if _, err := s.CurrentManifest(ctx); !errors.Is(err, ErrNoManifest) {
		t.Fatalf("expected ErrNoManifest on empty slot, got %v", err)
	}

	m := &entity.TaskManifest{
		ID:        "m1",
		TaskNo:    "HS2025011501",
		CreatedAt: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC),
		Status:    entity.ManifestStatusPending,
		Tasks: []entity.BinTask{
			{TaskID: "HS2025011501_1", BinCode: "A001", BinDesc: "A区001储位", ProductQty: 50, ProductCode: "C001"},
		},
	}
	m.Stats = entity.ComputeStats(m.Tasks)

	if err := s.SaveManifest(ctx, m); err != nil {
		t.Fatalf("save manifest: %v", err)
	}

	got, err := s.CurrentManifest(ctx)
	if err != nil {
		t.Fatalf("current manifest: %v", err)
	}
	if got.TaskNo != m.TaskNo || len(got.Tasks) != 1 || got.Stats.TotalBins != 1 {
		t.Fatalf("unexpected manifest: %+v", got)
	}

	taskNo, err := s.CurrentTaskNo(ctx)
	if err != nil {
		t.Fatalf("current task no: %v", err)
	}
	if taskNo != "HS2025011501" {
		t.Fatalf("expected task no to track manifest, got %s", taskNo)
	}

	// Single slot, last write wins
	m2 := &entity.TaskManifest{ID: "m2", TaskNo: "HS2025011502"}
	if err := s.SaveManifest(ctx, m2); err != nil {
		t.Fatalf("save second manifest: %v", err)
	}
	got, _ = s.CurrentManifest(ctx)
	if got.ID != "m2" {
		t.Fatalf("expected second manifest to replace first, got %s", got.ID)
	}
}

func TestNextDailySequence(t *testing.T) {
	ctx := context.Background()
	s := NewManifestStore(NewMemoryKV())

	for want := 1; want <= 3; want++ {
		got, err := s.NextDailySequence(ctx, "20250115")
		if err != nil {
			t.Fatalf("next sequence: %v", err)
		}
		if got != want {
			t.Fatalf("expected sequence %d, got %d", want, got)
		}
	}

	// A new date starts from 1
	got, err := s.NextDailySequence(ctx, "20250116")
	if err != nil {
		t.Fatalf("next sequence: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected new date to reset to 1, got %d", got)
	}
}
