package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/store"
)

func newManifestService(t *testing.T) (*ManifestService, *gateway.Mock) {
	t.Helper()
	mock := gateway.NewMock()
	svc := NewManifestService(mock, store.NewManifestStore(store.NewMemoryKV()), zap.NewNop())
	return svc, mock
}

func TestBuildRejectsEmptySelection(t *testing.T) {
	svc, _ := newManifestService(t)
	if _, err := svc.Build(context.Background(), "HS2025011501", nil); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestBuildManifest(t *testing.T) {
	svc, _ := newManifestService(t)
	bins := gateway.DefaultBins()[:3]

	m, err := svc.Build(context.Background(), "HS2025011501", bins)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.TaskNo != "HS2025011501" {
		t.Fatalf("unexpected task no %s", m.TaskNo)
	}
	if len(m.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(m.Tasks))
	}
	if m.Tasks[0].TaskID != "HS2025011501_1" || m.Tasks[2].TaskID != "HS2025011501_3" {
		t.Fatalf("unexpected task ids: %s %s", m.Tasks[0].TaskID, m.Tasks[2].TaskID)
	}
	if m.Tasks[0].ProductQty != 50 || m.Tasks[0].ProductName != "黄鹤楼(硬盒)" {
		t.Fatalf("bin snapshot not carried over: %+v", m.Tasks[0])
	}

	// Manifest persisted to the single slot
	got, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if got.TaskNo != m.TaskNo {
		t.Fatalf("expected persisted manifest, got %s", got.TaskNo)
	}
}

func TestBuildAutoGeneratesTaskNo(t *testing.T) {
	svc, _ := newManifestService(t)
	svc.now = func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) }

	m, err := svc.Build(context.Background(), "", gateway.DefaultBins()[:1])
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.TaskNo != "HS2025011501" {
		t.Fatalf("expected generated task no HS2025011501, got %s", m.TaskNo)
	}
}

func TestBuildStatsWithDuplicateCodes(t *testing.T) {
	svc, _ := newManifestService(t)
	bins := []gateway.BinRecord{
		{WhCode: "WH001", BinCode: "A001", BinDesc: "A区001储位", TobaccoQty: 10, TobaccoCode: "C001"},
		{WhCode: "WH001", BinCode: "A002", BinDesc: "A区002储位", TobaccoQty: 20, TobaccoCode: "C001"},
		{WhCode: "WH001", BinCode: "A001", BinDesc: "A区001储位", TobaccoQty: 5, TobaccoCode: "C002"},
		{WhCode: "WH001", BinCode: "A003", BinDesc: "A区003储位", TobaccoQty: 7},
	}

	m, err := svc.Build(context.Background(), "HS2025011501", bins)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if m.Stats.TotalBins != 4 {
		t.Fatalf("expected 4 bins, got %d", m.Stats.TotalBins)
	}
	// C001 twice and one empty code
	if m.Stats.UniqueItems != 2 {
		t.Fatalf("expected 2 unique items, got %d", m.Stats.UniqueItems)
	}
	// A001 twice
	if m.Stats.UniqueLocations != 3 {
		t.Fatalf("expected 3 unique locations, got %d", m.Stats.UniqueLocations)
	}
	if m.Stats.TotalQuantity != 42 {
		t.Fatalf("expected total quantity 42, got %d", m.Stats.TotalQuantity)
	}
}

func TestGenerateTaskNoDailySequence(t *testing.T) {
	svc, _ := newManifestService(t)
	current := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	for _, want := range []string{"HS2025011501", "HS2025011502", "HS2025011503"} {
		got, err := svc.GenerateTaskNo(context.Background())
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}

	// Next day starts over
	current = current.AddDate(0, 0, 1)
	got, err := svc.GenerateTaskNo(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "HS2025011601" {
		t.Fatalf("expected HS2025011601, got %s", got)
	}
}

func TestListBinsFilters(t *testing.T) {
	svc, _ := newManifestService(t)

	listing, err := svc.ListBins(context.Background(), "token", "", "")
	if err != nil {
		t.Fatalf("list bins: %v", err)
	}
	if listing.Degraded {
		t.Fatal("healthy gateway must not be flagged degraded")
	}
	if len(listing.Bins) != 8 {
		t.Fatalf("expected 8 bins, got %d", len(listing.Bins))
	}

	listing, err = svc.ListBins(context.Background(), "token", "WH002", "B")
	if err != nil {
		t.Fatalf("list bins filtered: %v", err)
	}
	if len(listing.Bins) != 2 {
		t.Fatalf("expected 2 filtered bins, got %d", len(listing.Bins))
	}
	for _, b := range listing.Bins {
		if b.WhCode != "WH002" || b.AreaCode != "B" {
			t.Fatalf("filter leaked bin: %+v", b)
		}
	}
}

func TestListBinsDegradesOnGatewayFailure(t *testing.T) {
	svc, mock := newManifestService(t)
	mock.ListBinsFn = func(ctx context.Context, authToken string) ([]gateway.BinRecord, error) {
		return nil, errors.New("gateway unreachable")
	}

	listing, err := svc.ListBins(context.Background(), "token", "", "")
	if err != nil {
		t.Fatalf("list bins must not fail: %v", err)
	}
	if !listing.Degraded {
		t.Fatal("expected degraded flag")
	}
	if len(listing.Bins) != 8 {
		t.Fatalf("expected demo data fallback, got %d bins", len(listing.Bins))
	}
	if !strings.HasPrefix(listing.Bins[0].BinDesc, "A区") {
		t.Fatalf("unexpected fallback bin: %+v", listing.Bins[0])
	}
}
