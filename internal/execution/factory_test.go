package execution

import (
	"context"
	"strings"
	"testing"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
	"github.com/minerjirou/crypto-trade-bot/internal/event"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
)

func testDeps(t *testing.T, mode string, withClient bool) Deps {
	t.Helper()
	cfg := infra.DefaultConfig()
	cfg.Trading.Mode = mode
	var seq uint64
	d := Deps{
		Config: &cfg,
		Inbox:  make(chan event.Event, 4),
		Seq:    &seq,
		Clock:  infra.RealClock{},
	}
	if withClient {
		d.Client = bitbank.NewClient(&cfg, infra.NewAPILimiter(cfg.API.Bitbank.RateLimit), infra.NewCircuitBreaker("test", &cfg, infra.RealClock{}), infra.RealClock{})
	}
	return d
}

func TestNewGateway_Paper(t *testing.T) {
	g, err := NewGateway(testDeps(t, "paper", false))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if _, ok := g.(*PaperGateway); !ok {
		t.Errorf("gateway = %T, want *PaperGateway", g)
	}
}

func TestNewGateway_DryRunNeedsClient(t *testing.T) {
	if _, err := NewGateway(testDeps(t, "dry-run", false)); err == nil {
		t.Fatal("dry-run without a client must fail")
	}
	g, err := NewGateway(testDeps(t, "dry-run", true))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if _, ok := g.(*DryRunGateway); !ok {
		t.Errorf("gateway = %T, want *DryRunGateway", g)
	}
}

func TestNewGateway_RealRequiresLatch(t *testing.T) {
	t.Setenv(realMoneyEnv, "")
	if _, err := NewGateway(testDeps(t, "real", true)); err == nil {
		t.Fatal("real mode without the latch must refuse to start")
	}

	t.Setenv(realMoneyEnv, "yes")
	if _, err := NewGateway(testDeps(t, "real", true)); err == nil {
		t.Fatal("latch must be the exact string YES")
	}

	t.Setenv(realMoneyEnv, "YES")
	g, err := NewGateway(testDeps(t, "real", true))
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	if _, ok := g.(*RealGateway); !ok {
		t.Errorf("gateway = %T, want *RealGateway", g)
	}
}

func TestNewGateway_UnknownMode(t *testing.T) {
	_, err := NewGateway(testDeps(t, "demo", false))
	if err == nil || !strings.Contains(err.Error(), "unknown trading mode") {
		t.Fatalf("err = %v, want unknown mode", err)
	}
}

func TestDryRunGateway_SuppressesWrites(t *testing.T) {
	deps := testDeps(t, "dry-run", true)
	g := NewDryRunGateway(deps.Client, deps.Clock)
	ctx := context.Background()

	ack, err := g.PlaceLimit(ctx, "xrp_jpy", domain.SideBuy, dec("99.9"), dec("10"), true)
	if err != nil {
		t.Fatalf("PlaceLimit: %v", err)
	}
	if ack.OrderID >= 0 {
		t.Errorf("synthetic OrderID = %d, want negative", ack.OrderID)
	}
	if ack.Side != domain.SideBuy || !ack.Price.Equal(dec("99.9")) || !ack.Size.Equal(dec("10")) {
		t.Errorf("ack = %+v, want the echoed order", ack)
	}

	ack2, err := g.PlaceMarket(ctx, "xrp_jpy", domain.SideSell, dec("3"))
	if err != nil {
		t.Fatalf("PlaceMarket: %v", err)
	}
	if ack2.OrderID >= 0 || ack2.OrderID == ack.OrderID {
		t.Errorf("second synthetic ID = %d, want a distinct negative", ack2.OrderID)
	}

	if err := g.Cancel(ctx, "xrp_jpy", ack.OrderID); err != nil {
		t.Errorf("Cancel = %v, want nil", err)
	}
}
