package bitbank

import (
	"encoding/json"
	"fmt"
)

const (
	// socket.io rooms on the stream
	depthRoomPrefix      = "depth_whole_"
	executionsRoomPrefix = "user_executions_"
)

// Error codes the engine cares about. The full table lives in the
// exchange docs; anything unlisted is reported verbatim.
const (
	CodeAuthFailed         = 20001
	CodeOrderNotFound      = 50009
	CodeOrderBeingCanceled = 50010
	CodeOrderAlreadyDone   = 50026
	CodeInsufficientFunds  = 60001
	CodeSystemError        = 70001
)

var errorMessages = map[int]string{
	CodeAuthFailed:         "authentication failed",
	CodeOrderNotFound:      "order not found",
	CodeOrderBeingCanceled: "order is being canceled",
	CodeOrderAlreadyDone:   "order already executed or canceled",
	CodeInsufficientFunds:  "insufficient funds",
	CodeSystemError:        "temporary system error",
}

// APIError is an exchange-side rejection: the transport worked but the
// venue answered success=0. It is recoverable; the engine logs it and
// moves on.
type APIError struct {
	Endpoint string
	Code     int
}

func (e *APIError) Error() string {
	if msg, ok := errorMessages[e.Code]; ok {
		return fmt.Sprintf("bitbank %s: code %d (%s)", e.Endpoint, e.Code, msg)
	}
	return fmt.Sprintf("bitbank %s: code %d", e.Endpoint, e.Code)
}

// OrderGone reports whether the error means the order no longer exists
// on the venue. A cancel that races a fill lands here; the caller
// treats it as a successful cancel.
func (e *APIError) OrderGone() bool {
	switch e.Code {
	case CodeOrderNotFound, CodeOrderBeingCanceled, CodeOrderAlreadyDone:
		return true
	}
	return false
}

// envelope is the uniform REST response wrapper: {"success":0|1,"data":...}.
// On failure data carries {"code":NNNNN}.
type envelope struct {
	Success int             `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorData struct {
	Code int `json:"code"`
}

// ---- REST wire structures (all numbers arrive as strings) ----

type assetsData struct {
	Assets []assetEntry `json:"assets"`
}

type assetEntry struct {
	Asset        string `json:"asset"`
	FreeAmount   string `json:"free_amount"`
	LockedAmount string `json:"locked_amount"`
}

type orderBody struct {
	Pair     string `json:"pair"`
	Amount   string `json:"amount"`
	Price    string `json:"price,omitempty"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	PostOnly bool   `json:"post_only,omitempty"`
}

type orderData struct {
	OrderID         int64       `json:"order_id"`
	Pair            string      `json:"pair"`
	Side            string      `json:"side"`
	Type            string      `json:"type"`
	StartAmount     string      `json:"start_amount"`
	RemainingAmount string      `json:"remaining_amount"`
	ExecutedAmount  string      `json:"executed_amount"`
	Price           string      `json:"price"`
	AveragePrice    string      `json:"average_price"`
	OrderedAt       json.Number `json:"ordered_at"` // epoch millis
	Status          string      `json:"status"`
}

type cancelBody struct {
	Pair    string `json:"pair"`
	OrderID int64  `json:"order_id"`
}

type openOrdersData struct {
	Orders []orderData `json:"orders"`
}

type tickerData struct {
	Sell      string      `json:"sell"`
	Buy       string      `json:"buy"`
	High      string      `json:"high"`
	Low       string      `json:"low"`
	Last      string      `json:"last"`
	Vol       string      `json:"vol"`
	Timestamp json.Number `json:"timestamp"` // epoch millis
}

type candlestickData struct {
	Candlestick []candlestickEntry `json:"candlestick"`
}

type candlestickEntry struct {
	Type string `json:"type"`
	// each row is [open, high, low, close, volume, unixMillis]
	OHLCV [][]json.Number `json:"ohlcv"`
}

// ---- stream wire structures ----

// streamEnvelope is the payload of a socket.io "message" event:
// {"room_name":"...","message":{"data":...}}.
type streamEnvelope struct {
	RoomName string `json:"room_name"`
	Message  struct {
		Data json.RawMessage `json:"data"`
	} `json:"message"`
}

// depthData carries the whole-book snapshot; only the top level is used.
type depthData struct {
	Bids      [][]string  `json:"bids"`
	Asks      [][]string  `json:"asks"`
	Timestamp json.Number `json:"timestamp"`
}

// executionData is one fill on our own orders.
type executionData struct {
	ExecID     int64       `json:"exec_id"`
	OrderID    int64       `json:"order_id"`
	Side       string      `json:"side"`
	Price      string      `json:"price"`
	Size       string      `json:"size"`
	ExecutedAt json.Number `json:"executed_at"`
}
