package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuditKind labels one row in the append-only trade audit log.
type AuditKind string

const (
	AuditOrder     AuditKind = "ORDER"     // an order placement was issued
	AuditExecution AuditKind = "EXECUTION" // a fill was reported
	AuditStop      AuditKind = "STOP"      // a stop-loss unwind was issued
)

// AuditRecord is one audit row. Failures to persist a record are
// non-fatal; the engine logs and carries on.
type AuditRecord struct {
	Ts    time.Time
	Kind  AuditKind
	Side  Side
	Price decimal.Decimal
	Size  decimal.Decimal
}
