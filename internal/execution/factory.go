package execution

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/minerjirou/crypto-trade-bot/internal/event"
	"github.com/minerjirou/crypto-trade-bot/internal/infra"
	"github.com/minerjirou/crypto-trade-bot/internal/infra/bitbank"
)

// Trading modes accepted by the factory. Config validation guarantees
// one of these reaches it.
const (
	ModePaper  = "paper"
	ModeDryRun = "dry-run"
	ModeReal   = "real"
)

// realMoneyEnv must be set to "YES" before real mode will start. The
// latch is an environment variable on purpose: it cannot be committed
// to a config file by accident.
const realMoneyEnv = "CONFIRM_REAL_MONEY"

// Deps bundles what the gateways need. Client may be nil in paper mode;
// Inbox and Seq are only used by the paper fill model.
type Deps struct {
	Config *infra.Config
	Client *bitbank.Client
	Inbox  chan<- event.Event
	Seq    *uint64
	Clock  infra.Clock
}

// NewGateway builds the execution gateway for the configured mode.
func NewGateway(d Deps) (Gateway, error) {
	switch mode := d.Config.Mode(); mode {
	case ModePaper:
		return NewPaperGateway(d.Config, d.Inbox, d.Seq, d.Clock)

	case ModeDryRun:
		if d.Client == nil {
			return nil, errors.New("dry-run mode needs a REST client")
		}
		slog.Warn("🟡 DRY-RUN mode: reads are live, orders are suppressed")
		return NewDryRunGateway(d.Client, d.Clock), nil

	case ModeReal:
		if os.Getenv(realMoneyEnv) != "YES" {
			err := fmt.Errorf("real mode refused: set %s=YES to trade real funds", realMoneyEnv)
			slog.Error("🔴 Real money latch is not set", slog.String("error", err.Error()))
			return nil, err
		}
		if d.Client == nil {
			return nil, errors.New("real mode needs a REST client")
		}
		slog.Warn("🔴 REAL mode: orders will spend real funds")
		return NewRealGateway(d.Client), nil

	default:
		return nil, fmt.Errorf("unknown trading mode %q", mode)
	}
}
