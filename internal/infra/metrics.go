package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_placed_total",
			Help: "Orders placed, by side and purpose",
		},
		[]string{"pair", "side", "kind"},
	)

	ordersCanceledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_orders_canceled_total",
			Help: "Orders canceled, by reason",
		},
		[]string{"pair", "reason"},
	)

	fillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_fills_total",
			Help: "Executions observed on our orders",
		},
		[]string{"pair", "side"},
	)

	reconcilePassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_reconcile_passes_total",
			Help: "Completed reconciliation passes",
		},
		[]string{"pair"},
	)

	reconcileSkipsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_reconcile_skips_total",
			Help: "Reconciliation passes skipped, by reason",
		},
		[]string{"pair", "reason"},
	)

	apiErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_api_errors_total",
			Help: "Exchange API failures, by endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)

	positionNotional = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_position_notional",
			Help: "Open position notional in quote currency, by side",
		},
		[]string{"pair", "side"},
	)

	midPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_mid_price",
			Help: "Latest mid price",
		},
		[]string{"pair"},
	)

	wsReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_ws_reconnects_total",
			Help: "WebSocket reconnect attempts, by worker",
		},
		[]string{"worker"},
	)

	eventDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_event_drops_total",
			Help: "Events dropped because the inbox was full",
		},
		[]string{"kind"},
	)
)

func CountOrderPlaced(pair, side, kind string) {
	ordersPlacedTotal.WithLabelValues(pair, side, kind).Inc()
}

func CountOrderCanceled(pair, reason string) {
	ordersCanceledTotal.WithLabelValues(pair, reason).Inc()
}

func CountFill(pair, side string) {
	fillsTotal.WithLabelValues(pair, side).Inc()
}

func CountReconcilePass(pair string) {
	reconcilePassesTotal.WithLabelValues(pair).Inc()
}

func CountReconcileSkip(pair, reason string) {
	reconcileSkipsTotal.WithLabelValues(pair, reason).Inc()
}

func CountAPIError(endpoint, kind string) {
	apiErrorsTotal.WithLabelValues(endpoint, kind).Inc()
}

func SetPositionNotional(pair, side string, notional float64) {
	positionNotional.WithLabelValues(pair, side).Set(notional)
}

func SetMidPrice(pair string, mid float64) {
	midPrice.WithLabelValues(pair).Set(mid)
}

func CountWSReconnect(worker string) {
	wsReconnectsTotal.WithLabelValues(worker).Inc()
}

func CountEventDrop(kind string) {
	eventDropsTotal.WithLabelValues(kind).Inc()
}
