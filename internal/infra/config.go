package infra

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/minerjirou/crypto-trade-bot/internal/domain"
)

// Dec reads a YAML scalar into a decimal straight from the node text, so
// a knob like 0.001 never takes a detour through float64.
type Dec struct {
	decimal.Decimal
}

func (d *Dec) UnmarshalYAML(node *yaml.Node) error {
	v, err := decimal.NewFromString(node.Value)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", node.Value, err)
	}
	d.Decimal = v
	return nil
}

func mustDec(s string) Dec {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Dec{v}
}

// Config holds every knob of the process. Values load from YAML, then
// environment variables override the sensitive ones, then Validate
// rejects anything the control loop must not start with.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode string `yaml:"mode"` // paper | dry-run | real
		Pair string `yaml:"pair"`
		// PaperBalance seeds the virtual quote balance in paper mode.
		PaperBalance Dec `yaml:"paper_balance"`
	} `yaml:"trading"`

	Maker struct {
		OrderFraction    Dec   `yaml:"order_fraction"`     // balance share per quote
		MaxPositionRatio Dec   `yaml:"max_position_ratio"` // risk cap per side
		EntryOffset      Dec   `yaml:"entry_offset"`
		TakeProfitOffset Dec   `yaml:"take_profit_offset"`
		StopOffset       Dec   `yaml:"stop_offset"`
		VolWindow        int   `yaml:"vol_window"`
		VolThreshold     Dec   `yaml:"vol_threshold"`
		PriceDigits      int32 `yaml:"price_digits"`
		SizeDigits       int32 `yaml:"size_digits"`
		MinLot           Dec   `yaml:"min_lot"`
		StaleSeconds     int   `yaml:"stale_seconds"`
		ResyncSeconds    int   `yaml:"resync_seconds"` // 0 disables the periodic mirror refresh
	} `yaml:"maker"`

	API struct {
		Bitbank struct {
			RestURL   string `yaml:"rest_url"`
			PublicURL string `yaml:"public_url"`
			StreamURL string `yaml:"stream_url"`
			Key       string `yaml:"key"`
			Secret    string `yaml:"secret"`
			RateLimit int    `yaml:"rate_limit"` // order-management calls per second
		} `yaml:"bitbank"`
	} `yaml:"api"`

	Breaker struct {
		FailureThreshold int `yaml:"failure_threshold"`
		SuccessThreshold int `yaml:"success_threshold"`
		TimeoutSeconds   int `yaml:"timeout_seconds"`
	} `yaml:"breaker"`

	Strategy struct {
		Crossover struct {
			Enabled     bool   `yaml:"enabled"`
			FastWindow  int    `yaml:"fast_window"`
			SlowWindow  int    `yaml:"slow_window"`
			TradeRatio  Dec    `yaml:"trade_ratio"`
			PollSeconds int    `yaml:"poll_seconds"`
			CandleType  string `yaml:"candle_type"`
		} `yaml:"crossover"`
	} `yaml:"strategy"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig mirrors the parameters the bot has always run with.
// A config file only needs to name what it changes.
func DefaultConfig() Config {
	var cfg Config
	cfg.App.Name = "crypto-trade-bot"
	cfg.App.Version = "dev"
	cfg.Trading.Mode = "paper"
	cfg.Trading.Pair = "xrp_jpy"
	cfg.Trading.PaperBalance = mustDec("100000")

	cfg.Maker.OrderFraction = mustDec("0.05")
	cfg.Maker.MaxPositionRatio = mustDec("0.3")
	cfg.Maker.EntryOffset = mustDec("0.001")
	cfg.Maker.TakeProfitOffset = mustDec("0.0015")
	cfg.Maker.StopOffset = mustDec("0.02")
	cfg.Maker.VolWindow = 20
	cfg.Maker.VolThreshold = mustDec("0.01")
	cfg.Maker.PriceDigits = 3
	cfg.Maker.SizeDigits = 4
	cfg.Maker.MinLot = mustDec("0.0001")
	cfg.Maker.StaleSeconds = 180
	cfg.Maker.ResyncSeconds = 60

	cfg.API.Bitbank.RestURL = "https://api.bitbank.cc"
	cfg.API.Bitbank.PublicURL = "https://public.bitbank.cc"
	cfg.API.Bitbank.StreamURL = "wss://stream.bitbank.cc"
	cfg.API.Bitbank.RateLimit = 6

	cfg.Breaker.FailureThreshold = 5
	cfg.Breaker.SuccessThreshold = 2
	cfg.Breaker.TimeoutSeconds = 30

	cfg.Strategy.Crossover.FastWindow = 9
	cfg.Strategy.Crossover.SlowWindow = 26
	cfg.Strategy.Crossover.TradeRatio = mustDec("0.1")
	cfg.Strategy.Crossover.PollSeconds = 60
	cfg.Strategy.Crossover.CandleType = "1min"

	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and parses the config file over the defaults, applies
// environment overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv lets the environment win over the file for secrets and
// the run mode. Keys in a checked-in YAML are a leak waiting to happen.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("BITBANK_API_KEY"); key != "" {
		cfg.API.Bitbank.Key = key
	}
	if secret := os.Getenv("BITBANK_API_SECRET"); secret != "" {
		cfg.API.Bitbank.Secret = secret
	}
	if mode := os.Getenv("BOT_MODE"); mode != "" {
		cfg.Trading.Mode = mode
	}
	if pair := os.Getenv("BOT_PAIR"); pair != "" {
		cfg.Trading.Pair = pair
	}
}

// Validate fails fast on anything the control loop must never run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Trading.Mode) {
	case "paper", "dry-run", "real":
	default:
		return fmt.Errorf("unknown trading mode %q (want paper, dry-run or real)", c.Trading.Mode)
	}

	if _, _, err := domain.SplitPair(c.Trading.Pair); err != nil {
		return err
	}
	if c.Mode() == "paper" && c.Trading.PaperBalance.Sign() <= 0 {
		return fmt.Errorf("trading.paper_balance must be positive, got %s", c.Trading.PaperBalance)
	}

	m := &c.Maker
	for _, check := range []struct {
		name string
		val  Dec
	}{
		{"maker.order_fraction", m.OrderFraction},
		{"maker.max_position_ratio", m.MaxPositionRatio},
		{"maker.entry_offset", m.EntryOffset},
		{"maker.take_profit_offset", m.TakeProfitOffset},
		{"maker.stop_offset", m.StopOffset},
		{"maker.vol_threshold", m.VolThreshold},
		{"maker.min_lot", m.MinLot},
	} {
		if check.val.Sign() <= 0 {
			return fmt.Errorf("%s must be positive, got %s", check.name, check.val)
		}
	}
	one := decimal.NewFromInt(1)
	if m.OrderFraction.GreaterThan(one) {
		return fmt.Errorf("maker.order_fraction must not exceed 1, got %s", m.OrderFraction)
	}
	if m.MaxPositionRatio.GreaterThan(one) {
		return fmt.Errorf("maker.max_position_ratio must not exceed 1, got %s", m.MaxPositionRatio)
	}
	if m.VolWindow < 2 {
		return fmt.Errorf("maker.vol_window must be at least 2, got %d", m.VolWindow)
	}
	if m.PriceDigits < 0 || m.SizeDigits < 0 {
		return fmt.Errorf("maker digits must not be negative")
	}
	if m.StaleSeconds <= 0 {
		return fmt.Errorf("maker.stale_seconds must be positive, got %d", m.StaleSeconds)
	}
	if m.ResyncSeconds < 0 {
		return fmt.Errorf("maker.resync_seconds must not be negative, got %d", m.ResyncSeconds)
	}

	api := &c.API.Bitbank
	if !strings.HasPrefix(api.RestURL, "http://") && !strings.HasPrefix(api.RestURL, "https://") {
		return fmt.Errorf("invalid bitbank rest URL: %s", api.RestURL)
	}
	if !strings.HasPrefix(api.PublicURL, "http://") && !strings.HasPrefix(api.PublicURL, "https://") {
		return fmt.Errorf("invalid bitbank public URL: %s", api.PublicURL)
	}
	if !strings.HasPrefix(api.StreamURL, "ws://") && !strings.HasPrefix(api.StreamURL, "wss://") {
		return fmt.Errorf("invalid bitbank stream URL: %s", api.StreamURL)
	}
	if api.RateLimit <= 0 {
		return fmt.Errorf("api.bitbank.rate_limit must be positive, got %d", api.RateLimit)
	}

	if c.Breaker.FailureThreshold <= 0 || c.Breaker.SuccessThreshold <= 0 || c.Breaker.TimeoutSeconds <= 0 {
		return fmt.Errorf("breaker thresholds and timeout must be positive")
	}

	cross := &c.Strategy.Crossover
	if cross.Enabled {
		if cross.FastWindow < 2 || cross.SlowWindow < 2 {
			return fmt.Errorf("crossover windows must be at least 2")
		}
		if cross.FastWindow >= cross.SlowWindow {
			return fmt.Errorf("crossover fast window %d must be shorter than slow window %d",
				cross.FastWindow, cross.SlowWindow)
		}
		if cross.TradeRatio.Sign() <= 0 || cross.TradeRatio.GreaterThan(one) {
			return fmt.Errorf("crossover trade_ratio must be in (0, 1], got %s", cross.TradeRatio)
		}
		if cross.PollSeconds <= 0 {
			return fmt.Errorf("crossover poll_seconds must be positive")
		}
		if cross.CandleType == "" {
			return fmt.Errorf("crossover candle_type is required")
		}
	}

	return nil
}

// Mode returns the normalized run mode.
func (c *Config) Mode() string {
	return strings.ToLower(c.Trading.Mode)
}

// PairInfo builds the trading-rule bundle for the configured pair.
func (c *Config) PairInfo() (domain.PairInfo, error) {
	return domain.NewPairInfo(c.Trading.Pair, c.Maker.PriceDigits, c.Maker.SizeDigits, c.Maker.MinLot.Decimal)
}
