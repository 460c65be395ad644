package domain

import (
	"testing"
)

func TestPositionLedger_RecordAndFlush(t *testing.T) {
	l := NewPositionLedger()

	l.Record(SideBuy, d("99.900"), d("2"))  // 199.8
	l.Record(SideBuy, d("100.00"), d("1"))  // +100 -> 299.8
	l.Record(SideSell, d("100.1"), d(".5")) // 50.05

	if got := l.Leg(SideBuy); !got.Equal(d("299.8")) {
		t.Errorf("buy leg = %s, want 299.8", got)
	}
	if got := l.Leg(SideSell); !got.Equal(d("50.05")) {
		t.Errorf("sell leg = %s, want 50.05", got)
	}
	if got := l.Net(); !got.Equal(d("249.75")) {
		t.Errorf("net = %s, want 249.75", got)
	}

	flushed := l.Flush(SideBuy)
	if !flushed.Equal(d("299.8")) {
		t.Errorf("Flush returned %s, want 299.8", flushed)
	}
	if !l.Leg(SideBuy).IsZero() {
		t.Error("buy leg must be exactly zero after flush")
	}
	if got := l.Leg(SideSell); !got.Equal(d("50.05")) {
		t.Errorf("flush touched the other leg: %s", got)
	}
}

func TestPositionLedger_Restore(t *testing.T) {
	l := NewPositionLedger()
	l.Restore(d("400"), d("12.5"))

	buy, sell := l.Legs()
	if !buy.Equal(d("400")) || !sell.Equal(d("12.5")) {
		t.Errorf("Legs() = %s, %s after restore", buy, sell)
	}

	// Restored state keeps accumulating normally.
	l.Record(SideBuy, d("100"), d("1"))
	if got := l.Leg(SideBuy); !got.Equal(d("500")) {
		t.Errorf("buy leg = %s, want 500", got)
	}
}
