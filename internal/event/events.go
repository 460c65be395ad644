package event

import (
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvBookUpdate Type = iota + 1
	EvExecutionFill
	EvResyncTick
)

// Event is the interface for everything flowing through the dispatcher
// inbox.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq uint64          `json:"seq"`
	Ts  quant.TimeStamp `json:"ts"`
}

func (e BaseEvent) GetSeq() uint64         { return e.Seq }
func (e BaseEvent) GetTs() quant.TimeStamp { return e.Ts }

// BookUpdateEvent carries the top of the public order book. This is the
// hot path; instances are pooled, and the dispatcher releases them after
// applying.
type BookUpdateEvent struct {
	BaseEvent
	Pair      string            `json:"pair"`
	BidMicros quant.PriceMicros `json:"bid"`
	AskMicros quant.PriceMicros `json:"ask"`
}

func (e *BookUpdateEvent) GetType() Type { return EvBookUpdate }

// ExecutionFillEvent carries one fill from the private stream.
type ExecutionFillEvent struct {
	BaseEvent
	Pair        string            `json:"pair"`
	ExecID      int64             `json:"exec_id"`
	OrderID     int64             `json:"order_id"`
	Side        string            `json:"side"`
	PriceMicros quant.PriceMicros `json:"price"`
	SizeSats    quant.QtySats     `json:"size"`
}

func (e *ExecutionFillEvent) GetType() Type { return EvExecutionFill }

// ResyncTickEvent asks the engine to refresh the local order mirror
// against exchange truth.
type ResyncTickEvent struct {
	BaseEvent
}

func (e *ResyncTickEvent) GetType() Type { return EvResyncTick }
