package bitbank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

// ErrCircuitOpen is returned without touching the network while the
// breaker rejects calls. Callers treat it like any transport failure.
var ErrCircuitOpen = errors.New("bitbank: circuit breaker open")

const maxResponseBytes = 1 << 20

// OrderRequest describes one order to place.
type OrderRequest struct {
	Pair     string
	Side     domain.Side
	Type     domain.OrderType
	Price    decimal.Decimal // ignored for market orders
	Size     decimal.Decimal
	PostOnly bool
}

// OrderAck is the venue's acknowledgment of a placed or canceled order.
type OrderAck struct {
	OrderID      int64
	Pair         string
	Side         domain.Side
	Price        decimal.Decimal
	Size         decimal.Decimal
	AveragePrice decimal.Decimal
	AcceptedAt   time.Time
	Status       string
}

// Client is the authenticated REST client. Every order-management call
// passes through the shared rate limiter and the circuit breaker;
// public candlestick fetches hit a separate host and skip both.
type Client struct {
	restURL   string
	publicURL string
	http      *http.Client
	signer    *Signer
	limiter   infra.Limiter
	breaker   *infra.CircuitBreaker
	clock     infra.Clock
}

func NewClient(cfg *infra.Config, limiter infra.Limiter, breaker *infra.CircuitBreaker, clock infra.Clock) *Client {
	return &Client{
		restURL:   strings.TrimRight(cfg.API.Bitbank.RestURL, "/"),
		publicURL: strings.TrimRight(cfg.API.Bitbank.PublicURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		signer:    NewSigner(cfg.API.Bitbank.Key, cfg.API.Bitbank.Secret),
		limiter:   limiter,
		breaker:   breaker,
		clock:     clock,
	}
}

// Close wipes the signing material.
func (c *Client) Close() {
	c.signer.Wipe()
}

// FetchAssets returns every asset balance on the account.
func (c *Client) FetchAssets(ctx context.Context) ([]domain.Balance, error) {
	var data assetsData
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/user/assets", nil, nil, &data); err != nil {
		return nil, err
	}

	balances := make([]domain.Balance, 0, len(data.Assets))
	for _, a := range data.Assets {
		free, err := quant.ParseDecimal(a.FreeAmount)
		if err != nil {
			return nil, fmt.Errorf("assets: bad free_amount for %s: %w", a.Asset, err)
		}
		locked, err := quant.ParseDecimal(a.LockedAmount)
		if err != nil {
			return nil, fmt.Errorf("assets: bad locked_amount for %s: %w", a.Asset, err)
		}
		balances = append(balances, domain.Balance{Asset: a.Asset, Free: free, Locked: locked})
	}
	return balances, nil
}

// FreeBalance returns the free amount of one asset. An asset absent
// from the account reads as zero.
func (c *Client) FreeBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	balances, err := c.FetchAssets(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if b, ok := domain.FindBalance(balances, asset); ok {
		return b.Free, nil
	}
	return decimal.Zero, nil
}

// PlaceOrder submits an order and returns the venue acknowledgment.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error) {
	body := orderBody{
		Pair:     req.Pair,
		Amount:   req.Size.String(),
		Side:     string(req.Side),
		Type:     string(req.Type),
		PostOnly: req.PostOnly,
	}
	if req.Type == domain.OrderTypeLimit {
		body.Price = req.Price.String()
	}

	var data orderData
	if err := c.doPrivate(ctx, http.MethodPost, "/v1/user/spot/order", nil, body, &data); err != nil {
		return nil, err
	}
	return ackFromOrder(&data)
}

// CancelOrder cancels one order. An order already gone from the venue
// counts as a successful cancel.
func (c *Client) CancelOrder(ctx context.Context, pair string, orderID int64) error {
	body := cancelBody{Pair: pair, OrderID: orderID}
	err := c.doPrivate(ctx, http.MethodPost, "/v1/user/spot/cancel_order", nil, body, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.OrderGone() {
		return nil
	}
	return err
}

// OpenOrders fetches the live order set for the pair, used to seed and
// resync the local mirror.
func (c *Client) OpenOrders(ctx context.Context, pair string) ([]domain.OpenOrder, error) {
	query := url.Values{"pair": {pair}}
	var data openOrdersData
	if err := c.doPrivate(ctx, http.MethodGet, "/v1/user/spot/open_orders", query, nil, &data); err != nil {
		return nil, err
	}

	orders := make([]domain.OpenOrder, 0, len(data.Orders))
	for i := range data.Orders {
		ack, err := ackFromOrder(&data.Orders[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, domain.OpenOrder{
			OrderID:  ack.OrderID,
			Pair:     ack.Pair,
			Side:     ack.Side,
			Price:    ack.Price,
			Size:     ack.Size,
			PlacedAt: ack.AcceptedAt,
		})
	}
	return orders, nil
}

// Candles fetches one day (or year, for coarse types) of candlesticks
// from the public API. day is the bucket the venue expects: YYYYMMDD
// for minute and hour candles, YYYY for daily and up.
func (c *Client) Candles(ctx context.Context, pair, candleType string, day time.Time) ([]domain.Candle, error) {
	bucket := day.Format("20060102")
	if !strings.Contains(candleType, "min") && !strings.Contains(candleType, "hour") {
		bucket = day.Format("2006")
	}
	endpoint := fmt.Sprintf("%s/%s/candlestick/%s/%s", c.publicURL, pair, candleType, bucket)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", infra.AppName)

	var data candlestickData
	if err := c.do(req, "candlestick", &data); err != nil {
		return nil, err
	}

	var candles []domain.Candle
	for _, entry := range data.Candlestick {
		for _, row := range entry.OHLCV {
			candle, err := candleFromRow(row)
			if err != nil {
				return nil, fmt.Errorf("candlestick %s: %w", candleType, err)
			}
			candles = append(candles, candle)
		}
	}
	return candles, nil
}

// Ticker fetches the public top-of-book summary for a pair.
func (c *Client) Ticker(ctx context.Context, pair string) (domain.Ticker, error) {
	endpoint := fmt.Sprintf("%s/%s/ticker", c.publicURL, pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Ticker{}, err
	}
	req.Header.Set("User-Agent", infra.AppName)

	var data tickerData
	if err := c.do(req, "ticker", &data); err != nil {
		return domain.Ticker{}, err
	}

	t := domain.Ticker{Pair: pair}
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{data.Sell, &t.Sell},
		{data.Buy, &t.Buy},
		{data.Last, &t.Last},
		{data.High, &t.High},
		{data.Low, &t.Low},
		{data.Vol, &t.Vol},
	} {
		v, err := quant.ParseDecimal(f.raw)
		if err != nil {
			return domain.Ticker{}, fmt.Errorf("ticker field: %w", err)
		}
		*f.dst = v
	}
	millis, err := data.Timestamp.Int64()
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("ticker timestamp: %w", err)
	}
	t.Ts = time.UnixMilli(millis).UTC()
	return t, nil
}

func (c *Client) doPrivate(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !c.breaker.Allow() {
		infra.CountAPIError(path, "circuit_open")
		return ErrCircuitOpen
	}

	pathWithQuery := path
	if len(query) > 0 {
		pathWithQuery += "?" + query.Encode()
	}

	var (
		reqBody io.Reader
		signed  string
	)
	switch method {
	case http.MethodGet:
		signed = pathWithQuery
	default:
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		signed = string(raw)
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restURL+pathWithQuery, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", infra.AppName)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	nonce := c.signer.Nonce(c.clock.Now().UnixMilli())
	c.signer.Authorize(req, nonce, signed)

	err = c.do(req, path, out)

	var apiErr *APIError
	switch {
	case err == nil:
		c.breaker.RecordSuccess()
	case errors.As(err, &apiErr):
		// the venue answered; transport is healthy
		c.breaker.RecordSuccess()
	default:
		c.breaker.RecordFailure()
	}
	return err
}

// do executes the request and unwraps the {success, data} envelope.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		infra.CountAPIError(endpoint, "transport")
		return fmt.Errorf("bitbank %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		infra.CountAPIError(endpoint, "transport")
		return fmt.Errorf("bitbank %s: read response: %w", endpoint, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		infra.CountAPIError(endpoint, "transport")
		return fmt.Errorf("bitbank %s: status %d, unparseable response: %w", endpoint, resp.StatusCode, err)
	}

	if env.Success != 1 {
		var ed errorData
		json.Unmarshal(env.Data, &ed)
		infra.CountAPIError(endpoint, "rejected")
		return &APIError{Endpoint: endpoint, Code: ed.Code}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			infra.CountAPIError(endpoint, "transport")
			return fmt.Errorf("bitbank %s: decode data: %w", endpoint, err)
		}
	}
	return nil
}

func ackFromOrder(data *orderData) (*OrderAck, error) {
	side := domain.Side(data.Side)
	if !side.Valid() {
		return nil, fmt.Errorf("order %d: unknown side %q", data.OrderID, data.Side)
	}

	price := decimal.Zero
	if data.Price != "" {
		var err error
		price, err = quant.ParseDecimal(data.Price)
		if err != nil {
			return nil, fmt.Errorf("order %d: bad price: %w", data.OrderID, err)
		}
	}

	sizeField := data.RemainingAmount
	if sizeField == "" {
		sizeField = data.StartAmount
	}
	size, err := quant.ParseDecimal(sizeField)
	if err != nil {
		return nil, fmt.Errorf("order %d: bad amount: %w", data.OrderID, err)
	}

	avg := decimal.Zero
	if data.AveragePrice != "" {
		avg, err = quant.ParseDecimal(data.AveragePrice)
		if err != nil {
			return nil, fmt.Errorf("order %d: bad average_price: %w", data.OrderID, err)
		}
	}

	millis, err := data.OrderedAt.Int64()
	if err != nil {
		return nil, fmt.Errorf("order %d: bad ordered_at: %w", data.OrderID, err)
	}

	return &OrderAck{
		OrderID:      data.OrderID,
		Pair:         data.Pair,
		Side:         side,
		Price:        price,
		Size:         size,
		AveragePrice: avg,
		AcceptedAt:   time.UnixMilli(millis).UTC(),
		Status:       data.Status,
	}, nil
}

func candleFromRow(row []json.Number) (domain.Candle, error) {
	if len(row) != 6 {
		return domain.Candle{}, fmt.Errorf("ohlcv row has %d fields, want 6", len(row))
	}

	var vals [5]decimal.Decimal
	for i := 0; i < 5; i++ {
		v, err := quant.ParseDecimal(row[i].String())
		if err != nil {
			return domain.Candle{}, fmt.Errorf("ohlcv field %d: %w", i, err)
		}
		vals[i] = v
	}
	millis, err := row[5].Int64()
	if err != nil {
		return domain.Candle{}, fmt.Errorf("ohlcv timestamp: %w", err)
	}

	return domain.Candle{
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
		Ts:     time.UnixMilli(millis).UTC(),
	}, nil
}
