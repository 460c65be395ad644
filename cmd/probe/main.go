// Command probe is a read-only venue check: it fetches the public
// ticker and today's candles for the configured pair and prints the
// numbers the bot would quote from. No key, no orders.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/internal/strategy"
	"github.com/minerjirou/crypto-trade-bot/pkg/quant"
)

func main() {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		// The probe should work from a bare checkout.
		fmt.Printf("⚠️  no config (%v), using defaults\n", err)
		def := infra.DefaultConfig()
		cfg = &def
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clock := infra.RealClock{}
	limiter := infra.NewAPILimiter(cfg.API.Bitbank.RateLimit)
	breaker := infra.NewCircuitBreaker("probe", cfg, clock)
	client := bitbank.NewClient(cfg, limiter, breaker, clock)
	defer client.Close()

	pair := cfg.Trading.Pair
	fmt.Printf("=== %s probe (read-only) ===\n\n", infra.AppName)

	ticker, err := client.Ticker(ctx, pair)
	if err != nil {
		fmt.Printf("❌ ticker %s: %v\n", pair, err)
		os.Exit(1)
	}
	mid := ticker.Mid()
	spread := ticker.Sell.Sub(ticker.Buy)
	fmt.Printf("📊 %s\n", pair)
	fmt.Printf("   bid  %s\n", ticker.Buy)
	fmt.Printf("   ask  %s\n", ticker.Sell)
	fmt.Printf("   mid  %s  (spread %s)\n", mid, spread)
	fmt.Printf("   last %s  high %s  low %s  vol %s\n\n",
		ticker.Last, ticker.High, ticker.Low, ticker.Vol)

	entry := cfg.Maker.EntryOffset.Decimal
	digits := cfg.Maker.PriceDigits
	one := decimal.NewFromInt(1)
	fmt.Printf("🧮 grid the maker would quote (entry offset %s)\n", entry)
	fmt.Printf("   buy  %s\n", quant.Quantize(mid.Mul(one.Sub(entry)), digits))
	fmt.Printf("   sell %s\n\n", quant.Quantize(mid.Mul(one.Add(entry)), digits))

	printCrossoverPreview(ctx, client, cfg, clock)
}

// printCrossoverPreview mirrors the crossover trader's read path so the
// averages on screen are the ones the bot would act on.
func printCrossoverPreview(ctx context.Context, client *bitbank.Client, cfg *infra.Config, clock infra.Clock) {
	cross := cfg.Strategy.Crossover
	jst := time.FixedZone("JST", 9*60*60)
	candles, err := client.Candles(ctx, cfg.Trading.Pair, cross.CandleType, clock.Now().In(jst))
	if err != nil {
		fmt.Printf("⚠️  candles: %v\n", err)
		return
	}
	fmt.Printf("🕯️ %d %s candles today\n", len(candles), cross.CandleType)
	if len(candles) == 0 {
		return
	}

	sma, err := strategy.NewSMAPair(cross.FastWindow, cross.SlowWindow)
	if err != nil {
		fmt.Printf("⚠️  sma: %v\n", err)
		return
	}
	for _, c := range candles {
		sma.Push(c.Close)
	}
	last := candles[len(candles)-1]
	fmt.Printf("   last close %s at %s\n", last.Close, last.Ts.Format(time.RFC3339))
	if !sma.Ready() {
		fmt.Printf("   window not filled (%d of %d)\n", len(candles), cross.SlowWindow)
		return
	}
	fast, slow := sma.Values()
	trend := "fast below slow"
	if fast.GreaterThan(slow) {
		trend = "fast above slow"
	}
	fmt.Printf("   sma fast(%d) %s  slow(%d) %s  → %s\n",
		cross.FastWindow, fast.StringFixed(3), cross.SlowWindow, slow.StringFixed(3), trend)
}
