package execution

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
)

// DryRunGateway reads real account state but never mutates it: place and
// cancel calls are logged and answered with synthetic acknowledgments.
// Synthetic order IDs are negative so they can never collide with venue
// IDs; the periodic resync will shed them from the mirror, which is the
// honest outcome for orders that were never sent.
type DryRunGateway struct {
	client *bitbank.Client
	clock  infra.Clock
	nextID atomic.Int64
}

func NewDryRunGateway(client *bitbank.Client, clock infra.Clock) *DryRunGateway {
	return &DryRunGateway{client: client, clock: clock}
}

func (g *DryRunGateway) Balances(ctx context.Context) ([]domain.Balance, error) {
	return g.client.FetchAssets(ctx)
}

func (g *DryRunGateway) OpenOrders(ctx context.Context, pair string) ([]domain.OpenOrder, error) {
	return g.client.OpenOrders(ctx, pair)
}

func (g *DryRunGateway) PlaceLimit(ctx context.Context, pair string, side domain.Side, price, size decimal.Decimal, postOnly bool) (*bitbank.OrderAck, error) {
	id := -g.nextID.Add(1)
	slog.Info("🟡 DRY-RUN: limit order suppressed",
		slog.String("pair", pair),
		slog.String("side", string(side)),
		slog.String("price", price.String()),
		slog.String("size", size.String()),
		slog.Bool("post_only", postOnly),
		slog.Int64("synthetic_id", id))
	return &bitbank.OrderAck{
		OrderID:    id,
		Pair:       pair,
		Side:       side,
		Price:      price,
		Size:       size,
		AcceptedAt: g.clock.Now().UTC(),
		Status:     "UNFILLED",
	}, nil
}

func (g *DryRunGateway) PlaceMarket(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error) {
	id := -g.nextID.Add(1)
	slog.Info("🟡 DRY-RUN: market order suppressed",
		slog.String("pair", pair),
		slog.String("side", string(side)),
		slog.String("size", size.String()),
		slog.Int64("synthetic_id", id))
	return &bitbank.OrderAck{
		OrderID:    id,
		Pair:       pair,
		Side:       side,
		Size:       size,
		AcceptedAt: g.clock.Now().UTC(),
		Status:     "FULLY_FILLED",
	}, nil
}

func (g *DryRunGateway) Cancel(ctx context.Context, pair string, orderID int64) error {
	slog.Info("🟡 DRY-RUN: cancel suppressed",
		slog.String("pair", pair),
		slog.Int64("order_id", orderID))
	return nil
}
