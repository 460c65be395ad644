package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
)

// RealGateway sends everything to the venue. Rate limiting and circuit
// breaking live inside the REST client, not here.
type RealGateway struct {
	client *bitbank.Client
}

func NewRealGateway(client *bitbank.Client) *RealGateway {
	return &RealGateway{client: client}
}

func (g *RealGateway) Balances(ctx context.Context) ([]domain.Balance, error) {
	return g.client.FetchAssets(ctx)
}

func (g *RealGateway) OpenOrders(ctx context.Context, pair string) ([]domain.OpenOrder, error) {
	return g.client.OpenOrders(ctx, pair)
}

func (g *RealGateway) PlaceLimit(ctx context.Context, pair string, side domain.Side, price, size decimal.Decimal, postOnly bool) (*bitbank.OrderAck, error) {
	return g.client.PlaceOrder(ctx, bitbank.OrderRequest{
		Pair:     pair,
		Side:     side,
		Type:     domain.OrderTypeLimit,
		Price:    price,
		Size:     size,
		PostOnly: postOnly,
	})
}

func (g *RealGateway) PlaceMarket(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error) {
	return g.client.PlaceOrder(ctx, bitbank.OrderRequest{
		Pair: pair,
		Side: side,
		Type: domain.OrderTypeMarket,
		Size: size,
	})
}

func (g *RealGateway) Cancel(ctx context.Context, pair string, orderID int64) error {
	return g.client.CancelOrder(ctx, pair, orderID)
}
