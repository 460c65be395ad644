package execution

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
)

// LimitCall records one PlaceLimit invocation.
type LimitCall struct {
	Pair     string
	Side     domain.Side
	Price    decimal.Decimal
	Size     decimal.Decimal
	PostOnly bool
}

// MarketCall records one PlaceMarket invocation.
type MarketCall struct {
	Pair string
	Side domain.Side
	Size decimal.Decimal
}

// MockGateway is a scriptable test double. Every call is recorded; each
// method delegates to its Fn override when set, otherwise answers with a
// benign default (empty balances, empty book, acks with sequential IDs).
type MockGateway struct {
	mu sync.Mutex

	Limits   []LimitCall
	Markets  []MarketCall
	Canceled []int64
	nextID   int64

	BalancesFn    func(ctx context.Context) ([]domain.Balance, error)
	OpenOrdersFn  func(ctx context.Context, pair string) ([]domain.OpenOrder, error)
	PlaceLimitFn  func(ctx context.Context, pair string, side domain.Side, price, size decimal.Decimal, postOnly bool) (*bitbank.OrderAck, error)
	PlaceMarketFn func(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error)
	CancelFn      func(ctx context.Context, pair string, orderID int64) error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Balances(ctx context.Context) ([]domain.Balance, error) {
	m.mu.Lock()
	fn := m.BalancesFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil, nil
}

func (m *MockGateway) OpenOrders(ctx context.Context, pair string) ([]domain.OpenOrder, error) {
	m.mu.Lock()
	fn := m.OpenOrdersFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, pair)
	}
	return nil, nil
}

func (m *MockGateway) PlaceLimit(ctx context.Context, pair string, side domain.Side, price, size decimal.Decimal, postOnly bool) (*bitbank.OrderAck, error) {
	m.mu.Lock()
	m.Limits = append(m.Limits, LimitCall{Pair: pair, Side: side, Price: price, Size: size, PostOnly: postOnly})
	fn := m.PlaceLimitFn
	m.nextID++
	id := m.nextID
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, pair, side, price, size, postOnly)
	}
	return &bitbank.OrderAck{OrderID: id, Pair: pair, Side: side, Price: price, Size: size, Status: "UNFILLED"}, nil
}

func (m *MockGateway) PlaceMarket(ctx context.Context, pair string, side domain.Side, size decimal.Decimal) (*bitbank.OrderAck, error) {
	m.mu.Lock()
	m.Markets = append(m.Markets, MarketCall{Pair: pair, Side: side, Size: size})
	fn := m.PlaceMarketFn
	m.nextID++
	id := m.nextID
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, pair, side, size)
	}
	return &bitbank.OrderAck{OrderID: id, Pair: pair, Side: side, Size: size, Status: "FULLY_FILLED"}, nil
}

func (m *MockGateway) Cancel(ctx context.Context, pair string, orderID int64) error {
	m.mu.Lock()
	m.Canceled = append(m.Canceled, orderID)
	fn := m.CancelFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, pair, orderID)
	}
	return nil
}

// LimitCalls returns a copy of the recorded limit placements.
func (m *MockGateway) LimitCalls() []LimitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LimitCall, len(m.Limits))
	copy(out, m.Limits)
	return out
}

// MarketCalls returns a copy of the recorded market placements.
func (m *MockGateway) MarketCalls() []MarketCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MarketCall, len(m.Markets))
	copy(out, m.Markets)
	return out
}

// CanceledIDs returns a copy of the recorded cancellations.
func (m *MockGateway) CanceledIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.Canceled))
	copy(out, m.Canceled)
	return out
}
