package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minerjirou/crypto-trade-bot/internal/app"
	"github.com/minerjirou/crypto-trade-bot/internal/engine"
	"github.com/minerjirou/crypto-trade-bot/internal/execution"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
	"github.com/minerjirou/crypto-trade-bot/internal/strategy"

	_ "net/http/pprof" // profiling endpoints on the diagnostic server
)

func main() {
	// Diagnostic server: pprof plus Prometheus metrics, localhost only.
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		slog.Info("🕵️ Diagnostic server on localhost:6060 (pprof, /metrics)")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Diagnostic server failed", slog.Any("error", err))
		}
	}()

	a, err := app.Bootstrap()
	if err != nil {
		slog.Error("❌ Bootstrap failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.Config
	clock := infra.RealClock{}
	seq := uint64(1)

	limiter := infra.NewAPILimiter(cfg.API.Bitbank.RateLimit)
	breaker := infra.NewCircuitBreaker("bitbank", cfg, clock)
	client := bitbank.NewClient(cfg, limiter, breaker, clock)
	defer client.Close()

	eng, err := engine.New(engine.Deps{
		Config: cfg,
		Audit:  a.Audit,
		Store:  a.Store,
		Ledger: a.Ledger,
		Clock:  clock,
		Seq:    &seq,
	})
	if err != nil {
		slog.Error("❌ Engine init failed", slog.Any("error", err))
		os.Exit(1)
	}

	gateway, err := execution.NewGateway(execution.Deps{
		Config: cfg,
		Client: client,
		Inbox:  eng.Inbox(),
		Seq:    &seq,
		Clock:  clock,
	})
	if err != nil {
		slog.Error("❌ Gateway init failed", slog.Any("error", err))
		os.Exit(1)
	}
	var obs execution.BookObserver
	if paper, ok := gateway.(*execution.PaperGateway); ok {
		obs = paper
	}
	eng.BindGateway(gateway, obs)

	// Adopt whatever is already resting on the venue before quoting.
	eng.SeedMirror(ctx)
	eng.Start(ctx)

	stream := bitbank.NewStreamWorker(cfg, eng.Inbox(), &seq, clock)
	stream.Start(ctx)

	var trader *strategy.CrossoverTrader
	if cfg.Strategy.Crossover.Enabled {
		trader, err = strategy.NewCrossoverTrader(strategy.Deps{
			Config:  cfg,
			Gateway: gateway,
			Candles: client,
			Audit:   a.Audit,
			Store:   a.Store,
			Clock:   clock,
		})
		if err != nil {
			slog.Error("❌ Crossover init failed", slog.Any("error", err))
			os.Exit(1)
		}
		trader.Start(ctx)
	}

	slog.Info("✨ Bot fully operational. Press Ctrl+C to exit.",
		slog.String("pair", cfg.Trading.Pair),
		slog.String("mode", cfg.Mode()))

	<-ctx.Done()
	slog.Info("👋 Shutting down gracefully...")

	// Stop producers first, then the engine, then persist the ledger.
	stream.Stop()
	if trader != nil {
		trader.Stop()
	}
	eng.Stop()
	a.SaveSnapshot()
}
