package storage

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestSnapshotManager_SaveAndLoadLatest(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	if err := sm.Save("xrp_jpy", dec(t, "299.8"), dec(t, "0")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	snap, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if snap == nil {
		t.Fatal("expected a snapshot")
	}
	if snap.Pair != "xrp_jpy" {
		t.Errorf("pair = %s", snap.Pair)
	}

	buy, sell, err := snap.Legs()
	if err != nil {
		t.Fatalf("Legs: %v", err)
	}
	if buy.String() != "299.8" || !sell.IsZero() {
		t.Errorf("legs = %s / %s", buy, sell)
	}
}

func TestSnapshotManager_LoadLatestPicksNewest(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	// seed files directly so the timestamps differ
	old := `{"ts":100,"pair":"xrp_jpy","buy_leg":"1","sell_leg":"0"}`
	newer := `{"ts":200,"pair":"xrp_jpy","buy_leg":"2","sell_leg":"0"}`
	os.WriteFile(filepath.Join(dir, "snapshot_100.json"), []byte(old), 0644)
	os.WriteFile(filepath.Join(dir, "snapshot_200.json"), []byte(newer), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644)

	snap, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if snap == nil || snap.BuyLeg != "2" {
		t.Errorf("snapshot = %+v, want the ts=200 one", snap)
	}
}

func TestSnapshotManager_LoadLatestEmpty(t *testing.T) {
	sm := NewSnapshotManager(filepath.Join(t.TempDir(), "missing"))

	snap, err := sm.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot, got %+v", snap)
	}
}

func TestSnapshotManager_BadLegsSurfaceOnParse(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "snapshot_100.json"),
		[]byte(`{"ts":100,"pair":"p","buy_leg":"garbage","sell_leg":"0"}`), 0644)

	snap, err := NewSnapshotManager(dir).LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if _, _, err := snap.Legs(); err == nil {
		t.Error("expected error for unparseable leg")
	}
}

func TestSnapshotManager_Cleanup(t *testing.T) {
	dir := t.TempDir()
	sm := NewSnapshotManager(dir)

	for ts := 1; ts <= 5; ts++ {
		name := filepath.Join(dir, "snapshot_"+strconv.Itoa(ts)+".json")
		body := `{"ts":` + strconv.Itoa(ts) + `,"pair":"p","buy_leg":"0","sell_leg":"0"}`
		os.WriteFile(name, []byte(body), 0644)
	}

	if err := sm.Cleanup(2); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("got %d files after cleanup, want 2", len(entries))
	}
	// the two newest survive
	for _, e := range entries {
		if e.Name() != "snapshot_4.json" && e.Name() != "snapshot_5.json" {
			t.Errorf("unexpected survivor %s", e.Name())
		}
	}
}
