// Command smoke validates API keys end to end: it places one post-only
// buy far below the market, waits, and cancels it. The order cannot
// fill at half the current mid, but it does touch the real account, so
// the same CONFIRM_REAL_MONEY latch as real mode applies.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

func main() {
	_ = godotenv.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	slog.Info("🚀 Starting order round-trip smoke test...")

	if os.Getenv("CONFIRM_REAL_MONEY") != "YES" {
		slog.Error("🔴 Refusing to touch the account: set CONFIRM_REAL_MONEY=YES to run the smoke test")
		os.Exit(1)
	}

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("❌ Config load failed", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.API.Bitbank.Key == "" || cfg.API.Bitbank.Secret == "" {
		slog.Error("❌ No API credentials (set BITBANK_API_KEY and BITBANK_API_SECRET)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	clock := infra.RealClock{}
	limiter := infra.NewAPILimiter(cfg.API.Bitbank.RateLimit)
	breaker := infra.NewCircuitBreaker("smoke", cfg, clock)
	client := bitbank.NewClient(cfg, limiter, breaker, clock)
	defer client.Close()

	pair := cfg.Trading.Pair
	ticker, err := client.Ticker(ctx, pair)
	if err != nil {
		slog.Error("❌ Ticker fetch failed", slog.Any("error", err))
		os.Exit(1)
	}
	mid := ticker.Mid()
	if mid.Sign() <= 0 {
		slog.Error("❌ Empty book, cannot pick a safe price")
		os.Exit(1)
	}

	// Half the mid cannot fill; post-only guarantees it either rests or
	// is rejected outright.
	price := quant.Quantize(mid.Mul(decimal.RequireFromString("0.5")), cfg.Maker.PriceDigits)
	size := cfg.Maker.MinLot.Decimal

	slog.Info("STEP 1: Placing far-off post-only buy...",
		slog.String("pair", pair),
		slog.String("price", price.String()),
		slog.String("size", size.String()))
	ack, err := client.PlaceOrder(ctx, bitbank.OrderRequest{
		Pair:     pair,
		Side:     domain.SideBuy,
		Type:     domain.OrderTypeLimit,
		Price:    price,
		Size:     size,
		PostOnly: true,
	})
	if err != nil {
		slog.Error("❌ Place failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("✅ Order resting", slog.Int64("order_id", ack.OrderID), slog.String("status", ack.Status))

	time.Sleep(2 * time.Second)

	slog.Info("STEP 2: Canceling...", slog.Int64("order_id", ack.OrderID))
	if err := client.CancelOrder(ctx, pair, ack.OrderID); err != nil {
		slog.Error("❌ Cancel failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("✅ Order canceled")
	slog.Info("🎉 Smoke test passed, keys and connectivity are good")
}
