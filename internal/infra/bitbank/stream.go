package bitbank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minerjirou/crypto-trade-bot/internal/event"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// socket.io packet prefixes (engine.io v4 framing)
const (
	sioOpen       = "0"  // server hello with session parameters
	sioPing       = "2"  // server ping, expects "3" back
	sioPong       = "3"
	sioConnect    = "40" // namespace connect (and its ack)
	sioEvent      = "42" // ["<event>", <payload>]
	handshakeWait = 10 * time.Second
)

// StreamWorker consumes the venue's socket.io stream: whole-book depth
// snapshots and our own execution reports, both for a single pair. It
// normalizes them into typed events and pushes them onto the dispatcher
// inbox, dropping on overflow rather than blocking the read loop.
type StreamWorker struct {
	base  *infra.BaseWSWorker
	url   string
	pair  string
	inbox chan<- event.Event
	seq   *uint64
	clock infra.Clock

	depthRoom string
	execRoom  string
}

func NewStreamWorker(cfg *infra.Config, inbox chan<- event.Event, seq *uint64, clock infra.Clock) *StreamWorker {
	pair := cfg.Trading.Pair
	w := &StreamWorker{
		url:       strings.TrimRight(cfg.API.Bitbank.StreamURL, "/") + "/socket.io/?EIO=4&transport=websocket",
		pair:      pair,
		inbox:     inbox,
		seq:       seq,
		clock:     clock,
		depthRoom: depthRoomPrefix + pair,
		execRoom:  executionsRoomPrefix + pair,
	}
	w.base = infra.NewBaseWSWorker(w)
	// engine.io v4 is server-pinged; the client only answers.
	w.base.PingInterval = 0
	return w
}

func (w *StreamWorker) ID() string     { return "bitbank-stream" }
func (w *StreamWorker) GetURL() string { return w.url }

func (w *StreamWorker) Start(ctx context.Context) {
	w.base.Start(ctx)
}

func (w *StreamWorker) Stop() {
	w.base.Stop()
}

// OnConnect walks the socket.io handshake and joins both rooms. The
// base worker has not started its read loop yet, so reading here is
// race-free.
func (w *StreamWorker) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	if err := w.expectPacket(conn, sioOpen); err != nil {
		return fmt.Errorf("open packet: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(sioConnect)); err != nil {
		return fmt.Errorf("namespace connect: %w", err)
	}
	if err := w.expectPacket(conn, sioConnect); err != nil {
		return fmt.Errorf("namespace ack: %w", err)
	}

	for _, room := range []string{w.depthRoom, w.execRoom} {
		join, err := json.Marshal([]string{"join-room", room})
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, append([]byte(sioEvent), join...)); err != nil {
			return fmt.Errorf("join %s: %w", room, err)
		}
	}
	return nil
}

func (w *StreamWorker) expectPacket(conn *websocket.Conn, prefix string) error {
	conn.SetReadDeadline(time.Now().Add(handshakeWait))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(msg), prefix) {
		return fmt.Errorf("unexpected packet %q", truncate(msg, 32))
	}
	return nil
}

func (w *StreamWorker) OnMessage(ctx context.Context, msg []byte) {
	s := string(msg)
	switch {
	case s == sioPing:
		if err := w.base.Write(websocket.TextMessage, []byte(sioPong)); err != nil {
			slog.Warn("Stream pong failed", "err", err)
		}
	case strings.HasPrefix(s, sioEvent):
		w.handleEvent(msg[len(sioEvent):])
	}
}

// OnPing is unused; the server drives keepalive in engine.io v4.
func (w *StreamWorker) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

func (w *StreamWorker) handleEvent(payload []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(payload, &frame); err != nil || len(frame) < 2 {
		return
	}
	var name string
	if err := json.Unmarshal(frame[0], &name); err != nil || name != "message" {
		return
	}

	var env streamEnvelope
	if err := json.Unmarshal(frame[1], &env); err != nil {
		return
	}

	switch env.RoomName {
	case w.depthRoom:
		w.handleDepth(env.Message.Data)
	case w.execRoom:
		w.handleExecutions(env.Message.Data)
	}
}

// handleDepth reduces a whole-book snapshot to its top of book.
func (w *StreamWorker) handleDepth(data json.RawMessage) {
	var depth depthData
	if err := json.Unmarshal(data, &depth); err != nil {
		slog.Debug("Bad depth payload", "err", err)
		return
	}
	// an empty side means no quotable top of book
	if len(depth.Bids) == 0 || len(depth.Asks) == 0 {
		return
	}
	if len(depth.Bids[0]) < 1 || len(depth.Asks[0]) < 1 {
		return
	}

	ev := event.AcquireBookUpdate()
	ev.Seq = quant.NextSeq(w.seq)
	ev.Ts = quant.StampOf(w.clock.Now())
	ev.Pair = w.pair
	ev.BidMicros = quant.PriceMicrosFromString(depth.Bids[0][0])
	ev.AskMicros = quant.PriceMicrosFromString(depth.Asks[0][0])

	select {
	case w.inbox <- ev:
	default:
		event.ReleaseBookUpdate(ev)
		infra.CountEventDrop("book_update")
	}
}

func (w *StreamWorker) handleExecutions(data json.RawMessage) {
	var fills []executionData
	if err := json.Unmarshal(data, &fills); err != nil {
		slog.Debug("Bad executions payload", "err", err)
		return
	}

	for _, fill := range fills {
		ev := &event.ExecutionFillEvent{
			BaseEvent: event.BaseEvent{
				Seq: quant.NextSeq(w.seq),
				Ts:  quant.StampOf(w.clock.Now()),
			},
			Pair:        w.pair,
			ExecID:      fill.ExecID,
			OrderID:     fill.OrderID,
			Side:        fill.Side,
			PriceMicros: quant.PriceMicrosFromString(fill.Price),
			SizeSats:    quant.QtySatsFromString(fill.Size),
		}

		select {
		case w.inbox <- ev:
		default:
			// dropping a fill loses ledger truth; say so loudly
			slog.Error("Inbox full, execution dropped",
				"order_id", fill.OrderID, "side", fill.Side)
			infra.CountEventDrop("execution_fill")
		}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
