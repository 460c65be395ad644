// Package execution selects how orders leave the process. Exactly one
// gateway is live per run: paper simulates the venue in-process, dry-run
// does real reads and suppressed writes, real talks to bitbank for
// everything. The engine and strategies only ever see the Gateway
// interface and never know which mode is behind it.
package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// Gateway is the venue-facing order surface. Implementations return
// *bitbank.APIError for venue rejections so callers can tell a rejected
// order from a transport failure.
type Gateway interface {
	// Balances fetches every asset balance from the venue.
	Balances(ctx context.Context) ([]domain.Balance, error)

	// OpenOrders fetches the venue's resting orders for one pair.
	OpenOrders(ctx context.Context, pair string) ([]domain.OpenOrder, error)

	// PlaceLimit submits a limit order. A post-only order rests or is
	// rejected; it never takes liquidity.
	PlaceLimit(ctx context.Context, pair string, side domain.Side, price, size decimal.Decimal, postOnly bool) (*bitbank.OrderAck, error)

	// PlaceMarket submits a market order for the given base size.
	PlaceMarket(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error)

	// Cancel removes a resting order. Canceling an order the venue no
	// longer has is success, not an error.
	Cancel(ctx context.Context, pair string, orderID int64) error
}

// BookObserver receives every accepted top-of-book update. The paper
// gateway implements it to drive its fill model; the live gateways have
// no use for it, so the engine treats a nil observer as "nobody cares".
type BookObserver interface {
	ObserveBook(bid, ask quant.PriceMicros)
}
