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
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
app:
  name: hft-bot
symbols: [BTCUSDT, ETHUSDT]
portfolio:
  initial_cash: 100000
risk:
  per_symbol_cap: 50000
  aggregate_cap: 90000
execution:
  slippage_bps: 2
  fee_bps: 10
strategy:
  name: rebalance
  weights:
    BTCUSDT: 0.6
    ETHUSDT: 0.4
  deviation_pct: 1
data:
  mode: replay
  replay_dir: ./data
  replay_speed: 10
journal:
  backend: csv
`

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfigFile(t, validConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Symbols) != 2 {
		t.Errorf("expected 2 symbols, got %d", len(cfg.Symbols))
	}
	if cfg.Portfolio.InitialCash != 100000 {
		t.Errorf("initial_cash = %v", cfg.Portfolio.InitialCash)
	}
	if cfg.Data.ReplaySpeed == nil || *cfg.Data.ReplaySpeed != 10 {
		t.Errorf("replay_speed = %v", cfg.Data.ReplaySpeed)
	}

	// Defaults
	if cfg.QuoteCcy != "USDT" {
		t.Errorf("default quote_ccy = %q", cfg.QuoteCcy)
	}
	if cfg.Execution.MaxAttempts != 3 {
		t.Errorf("default max_attempts = %d", cfg.Execution.MaxAttempts)
	}
	if cfg.Journal.Dir != "data" {
		t.Errorf("default journal dir = %q", cfg.Journal.Dir)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default logging level = %q", cfg.Logging.Level)
	}
}

func TestLoadConfig_ReplaySpeed(t *testing.T) {
	base := "symbols: [BTCUSDT]\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 1}\ndata:\n  mode: replay\n  replay_dir: ./d\n"

	t.Run("explicit zero means unpaced", func(t *testing.T) {
		path := writeConfigFile(t, base+"  replay_speed: 0\n")
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Data.ReplaySpeed == nil || *cfg.Data.ReplaySpeed != 0 {
			t.Errorf("explicit replay_speed: 0 must survive defaulting, got %v", cfg.Data.ReplaySpeed)
		}
	})

	t.Run("absent defaults to realtime", func(t *testing.T) {
		path := writeConfigFile(t, base)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Data.ReplaySpeed == nil || *cfg.Data.ReplaySpeed != 1 {
			t.Errorf("absent replay_speed should default to 1, got %v", cfg.Data.ReplaySpeed)
		}
	})

	t.Run("negative rejected", func(t *testing.T) {
		path := writeConfigFile(t, base+"  replay_speed: -1\n")
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for negative replay_speed")
		}
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "no symbols",
			content: "symbols: []\ndata:\n  mode: replay\n  replay_dir: ./d\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 1}\n",
		},
		{
			name:    "duplicate symbol",
			content: "symbols: [BTCUSDT, BTCUSDT]\ndata:\n  mode: replay\n  replay_dir: ./d\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 1}\n",
		},
		{
			name:    "unknown mode",
			content: "symbols: [BTCUSDT]\ndata:\n  mode: quantum\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 1}\n",
		},
		{
			name:    "replay without dir",
			content: "symbols: [BTCUSDT]\ndata:\n  mode: replay\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 1}\n",
		},
		{
			name:    "weight for unknown symbol",
			content: "symbols: [BTCUSDT]\ndata:\n  mode: replay\n  replay_dir: ./d\nstrategy:\n  name: rebalance\n  weights: {ETHUSDT: 1}\n",
		},
		{
			name:    "weights over one",
			content: "symbols: [BTCUSDT, ETHUSDT]\ndata:\n  mode: replay\n  replay_dir: ./d\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 0.8, ETHUSDT: 0.5}\n",
		},
		{
			name:    "negative initial cash",
			content: "symbols: [BTCUSDT]\nportfolio:\n  initial_cash: -1\ndata:\n  mode: replay\n  replay_dir: ./d\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 1}\n",
		},
		{
			name:    "live without credentials",
			content: "symbols: [BTCUSDT]\ntrading:\n  live_enabled: true\ndata:\n  mode: replay\n  replay_dir: ./d\nstrategy:\n  name: rebalance\n  weights: {BTCUSDT: 1}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("HFT_BINANCE_KEY", "env-key")
	t.Setenv("HFT_BINANCE_SECRET", "env-secret")

	path := writeConfigFile(t, validConfig)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Binance.APIKey != "env-key" || cfg.Binance.APISecret != "env-secret" {
		t.Errorf("env override not applied: %q %q", cfg.Binance.APIKey, cfg.Binance.APISecret)
	}
	if !cfg.HasVenueCredentials() {
		t.Error("HasVenueCredentials should be true")
	}
}
