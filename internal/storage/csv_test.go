package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestTradeLog_AppendAndHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trades.csv")

	log, err := NewTradeLog(path)
	if err != nil {
		t.Fatalf("NewTradeLog: %v", err)
	}

	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	err = log.Append(domain.AuditRecord{
		Ts: ts, Kind: domain.AuditOrder, Side: domain.SideBuy,
		Price: dec(t, "99.900"), Size: dec(t, "13.5135"),
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}

	wantHeader := []string{"timestamp", "event", "side", "price", "size"}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header[%d] = %s, want %s", i, rows[0][i], col)
		}
	}

	row := rows[1]
	if row[1] != "ORDER" || row[2] != "buy" || row[3] != "99.9" || row[4] != "13.5135" {
		t.Errorf("row = %v", row)
	}
	if _, err := time.Parse(time.RFC3339Nano, row[0]); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", row[0], err)
	}
}

func TestTradeLog_ReopenDoesNotRepeatHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	rec := domain.AuditRecord{
		Ts: time.Now().UTC(), Kind: domain.AuditExecution, Side: domain.SideSell,
		Price: dec(t, "100.1"), Size: dec(t, "2"),
	}

	for i := 0; i < 2; i++ {
		log, err := NewTradeLog(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := log.Append(rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if err := log.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[2][0] == "timestamp" {
		t.Error("header repeated on reopen")
	}
}

func TestTradeLog_EveryKindRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	log, err := NewTradeLog(path)
	if err != nil {
		t.Fatal(err)
	}

	for _, kind := range []domain.AuditKind{domain.AuditOrder, domain.AuditExecution, domain.AuditStop} {
		err := log.Append(domain.AuditRecord{
			Ts: time.Now().UTC(), Kind: kind, Side: domain.SideBuy,
			Price: dec(t, "1"), Size: dec(t, "1"),
		})
		if err != nil {
			t.Fatalf("append %s: %v", kind, err)
		}
	}
	log.Close()

	rows := readRows(t, path)
	want := []string{"ORDER", "EXECUTION", "STOP"}
	for i, kind := range want {
		if rows[i+1][1] != kind {
			t.Errorf("row %d event = %s, want %s", i+1, rows[i+1][1], kind)
		}
	}
}
