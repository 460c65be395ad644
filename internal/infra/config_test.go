package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
trading:
  pair: btc_jpy
maker:
  entry_offset: "0.002"
  stale_seconds: 300
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Trading.Pair != "btc_jpy" {
		t.Errorf("pair = %q, want btc_jpy", cfg.Trading.Pair)
	}
	if got := cfg.Maker.EntryOffset.String(); got != "0.002" {
		t.Errorf("entry_offset = %s, want 0.002", got)
	}
	if cfg.Maker.StaleSeconds != 300 {
		t.Errorf("stale_seconds = %d, want 300", cfg.Maker.StaleSeconds)
	}

	// untouched knobs keep their defaults
	if got := cfg.Maker.OrderFraction.String(); got != "0.05" {
		t.Errorf("order_fraction = %s, want default 0.05", got)
	}
	if cfg.Maker.VolWindow != 20 {
		t.Errorf("vol_window = %d, want default 20", cfg.Maker.VolWindow)
	}
	if cfg.API.Bitbank.RestURL != "https://api.bitbank.cc" {
		t.Errorf("rest_url = %q, want default", cfg.API.Bitbank.RestURL)
	}
}

func TestLoadConfig_DecimalsAreExact(t *testing.T) {
	// 0.001 has no exact float64; the YAML text must reach the decimal
	// type without one.
	path := writeConfigFile(t, `
maker:
  entry_offset: 0.001
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got := cfg.Maker.EntryOffset.String(); got != "0.001" {
		t.Errorf("entry_offset = %s, want exactly 0.001", got)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BITBANK_API_KEY", "env-key")
	t.Setenv("BITBANK_API_SECRET", "env-secret")
	t.Setenv("BOT_MODE", "dry-run")

	path := writeConfigFile(t, `
api:
  bitbank:
    key: file-key
    secret: file-secret
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.Bitbank.Key != "env-key" {
		t.Errorf("key = %q, want env-key", cfg.API.Bitbank.Key)
	}
	if cfg.API.Bitbank.Secret != "env-secret" {
		t.Errorf("secret = %q, want env-secret", cfg.API.Bitbank.Secret)
	}
	if cfg.Mode() != "dry-run" {
		t.Errorf("mode = %q, want dry-run", cfg.Mode())
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"unknown mode", func(c *Config) { c.Trading.Mode = "live" }, true},
		{"mode is case-insensitive", func(c *Config) { c.Trading.Mode = "PAPER" }, false},
		{"malformed pair", func(c *Config) { c.Trading.Pair = "xrpjpy" }, true},
		{"zero entry offset", func(c *Config) { c.Maker.EntryOffset = mustDec("0") }, true},
		{"negative stop offset", func(c *Config) { c.Maker.StopOffset = mustDec("-0.01") }, true},
		{"order fraction above one", func(c *Config) { c.Maker.OrderFraction = mustDec("1.5") }, true},
		{"window of one", func(c *Config) { c.Maker.VolWindow = 1 }, true},
		{"zero stale seconds", func(c *Config) { c.Maker.StaleSeconds = 0 }, true},
		{"resync disabled is fine", func(c *Config) { c.Maker.ResyncSeconds = 0 }, false},
		{"bad stream scheme", func(c *Config) { c.API.Bitbank.StreamURL = "https://stream.bitbank.cc" }, true},
		{"zero rate limit", func(c *Config) { c.API.Bitbank.RateLimit = 0 }, true},
		{"crossover disabled skips checks", func(c *Config) {
			c.Strategy.Crossover.Enabled = false
			c.Strategy.Crossover.FastWindow = 0
		}, false},
		{"crossover fast >= slow", func(c *Config) {
			c.Strategy.Crossover.Enabled = true
			c.Strategy.Crossover.FastWindow = 26
			c.Strategy.Crossover.SlowWindow = 26
		}, true},
		{"crossover valid", func(c *Config) { c.Strategy.Crossover.Enabled = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
