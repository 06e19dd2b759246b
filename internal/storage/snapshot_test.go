package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/portfolio"
)

func TestSnapshotManager_SaveAndLoadLatest(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	view := portfolio.View{
		QuoteCcy: "USDT",
		Cash:     decimal.RequireFromString("90000.5"),
		Positions: map[string]domain.Position{
			"BTCUSDT": {
				Symbol:   "BTCUSDT",
				Qty:      decimal.RequireFromString("2"),
				AvgPrice: decimal.RequireFromString("101"),
			},
		},
	}

	snap := CreateSnapshot(view)
	if err := sm.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a snapshot")
	}
	if loaded.Cash != "90000.5" {
		t.Errorf("cash: got %s", loaded.Cash)
	}
	pos, ok := loaded.Positions["BTCUSDT"]
	if !ok {
		t.Fatal("missing BTCUSDT position")
	}
	if !pos.Qty.Equal(decimal.RequireFromString("2")) {
		t.Errorf("qty: got %s", pos.Qty)
	}
}

func TestSnapshotManager_LoadLatestEmpty(t *testing.T) {
	sm := NewSnapshotManager(t.TempDir())

	snap, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if snap != nil {
		t.Error("expected nil snapshot for empty dir")
	}
}

func TestSnapshotManager_PicksNewest(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	older := &Snapshot{TsUnix: time.Now().Unix() - 100, QuoteCcy: "USDT", Cash: "1"}
	newer := &Snapshot{TsUnix: time.Now().Unix(), QuoteCcy: "USDT", Cash: "2"}

	if err := sm.Save(older); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if err := sm.Save(newer); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if loaded.Cash != "2" {
		t.Errorf("expected newest snapshot, got cash %s", loaded.Cash)
	}
}

func TestSnapshotManager_Cleanup(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	base := time.Now().Unix()
	for i := int64(0); i < 5; i++ {
		if err := sm.Save(&Snapshot{TsUnix: base + i, QuoteCcy: "USDT", Cash: "1"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	loaded, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if loaded == nil || loaded.TsUnix != base+4 {
		t.Error("newest snapshot must survive cleanup")
	}
}
