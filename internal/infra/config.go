package infra

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Data source modes.
const (
	DataModeLive   = "live"
	DataModeReplay = "replay"
)

// Journal backends.
const (
	JournalCSV    = "csv"
	JournalSQLite = "sqlite"
)

// Strategy names.
const (
	StrategyRebalance = "rebalance"
	StrategySMACross  = "sma_cross"
)

// Config holds the full application configuration. Secrets may be
// overridden by environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Symbols  []string `yaml:"symbols"`
	QuoteCcy string   `yaml:"quote_ccy"`

	Portfolio struct {
		InitialCash float64 `yaml:"initial_cash"`
	} `yaml:"portfolio"`

	Risk struct {
		PerSymbolCap  float64            `yaml:"per_symbol_cap"`
		PerSymbolCaps map[string]float64 `yaml:"per_symbol_caps"`
		AggregateCap  float64            `yaml:"aggregate_cap"`
	} `yaml:"risk"`

	Execution struct {
		SlippageBps float64 `yaml:"slippage_bps"`
		FeeBps      float64 `yaml:"fee_bps"`
		MaxAttempts int     `yaml:"max_attempts"`
	} `yaml:"execution"`

	Strategy struct {
		Name            string             `yaml:"name"`
		Weights         map[string]float64 `yaml:"weights"`
		DeviationAbs    float64            `yaml:"deviation_abs"`
		DeviationPct    float64            `yaml:"deviation_pct"`
		LotSize         float64            `yaml:"lot_size"`
		PriceCushionBps float64            `yaml:"price_cushion_bps"`
		CooldownSec     float64            `yaml:"cooldown_sec"`
		FastPeriod      int                `yaml:"fast_period"`
		SlowPeriod      int                `yaml:"slow_period"`
		TradeQty        float64            `yaml:"trade_qty"`
	} `yaml:"strategy"`

	Data struct {
		Mode          string `yaml:"mode"` // live | replay
		WSURL         string `yaml:"ws_url"`
		MaxReconnects int    `yaml:"max_reconnects"`
		ReplayDir     string `yaml:"replay_dir"`
		Dataset       string `yaml:"dataset"`
		// Pointer so an explicit 0 (play as fast as possible) is
		// distinguishable from an absent key (defaults to realtime).
		ReplaySpeed *float64 `yaml:"replay_speed"`
		ReplayLoop  bool     `yaml:"replay_loop"`
	} `yaml:"data"`

	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Testnet   bool   `yaml:"testnet"`
	} `yaml:"binance"`

	Trading struct {
		LiveEnabled bool `yaml:"live_enabled"`
	} `yaml:"trading"`

	Journal struct {
		Backend string `yaml:"backend"` // csv | sqlite
		Dir     string `yaml:"dir"`
	} `yaml:"journal"`

	Report struct {
		IntervalSec float64 `yaml:"interval_sec"`
	} `yaml:"report"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides, fills defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.QuoteCcy == "" {
		c.QuoteCcy = "USDT"
	}
	if c.Data.Mode == "" {
		c.Data.Mode = DataModeReplay
	}
	if c.Data.WSURL == "" {
		c.Data.WSURL = "wss://stream.binance.com:9443"
	}
	if c.Data.MaxReconnects == 0 {
		c.Data.MaxReconnects = 10
	}
	if c.Data.ReplaySpeed == nil {
		speed := 1.0
		c.Data.ReplaySpeed = &speed
	}
	if c.Execution.MaxAttempts == 0 {
		c.Execution.MaxAttempts = 3
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = StrategyRebalance
	}
	if c.Strategy.LotSize == 0 {
		c.Strategy.LotSize = 1
	}
	if c.Journal.Backend == "" {
		c.Journal.Backend = JournalCSV
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = "data"
	}
	if c.Report.IntervalSec == 0 {
		c.Report.IntervalSec = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" {
			return fmt.Errorf("empty symbol in symbols list")
		}
		if seen[s] {
			return fmt.Errorf("duplicate symbol: %s", s)
		}
		seen[s] = true
	}

	if c.Portfolio.InitialCash < 0 {
		return fmt.Errorf("initial_cash must not be negative")
	}
	if c.Execution.SlippageBps < 0 || c.Execution.FeeBps < 0 {
		return fmt.Errorf("slippage_bps and fee_bps must not be negative")
	}
	if c.Execution.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}

	switch c.Data.Mode {
	case DataModeLive:
		if !strings.HasPrefix(c.Data.WSURL, "ws://") && !strings.HasPrefix(c.Data.WSURL, "wss://") {
			return fmt.Errorf("invalid ws_url: %s", c.Data.WSURL)
		}
	case DataModeReplay:
		if c.Data.ReplayDir == "" {
			return fmt.Errorf("replay_dir is required in replay mode")
		}
		if *c.Data.ReplaySpeed < 0 {
			return fmt.Errorf("replay_speed must not be negative")
		}
	default:
		return fmt.Errorf("unknown data mode: %s", c.Data.Mode)
	}

	switch c.Strategy.Name {
	case StrategyRebalance:
		if len(c.Strategy.Weights) == 0 {
			return fmt.Errorf("strategy weights are required for %s", StrategyRebalance)
		}
		var total float64
		for sym, w := range c.Strategy.Weights {
			if w < 0 {
				return fmt.Errorf("negative weight for %s", sym)
			}
			if !seen[sym] {
				return fmt.Errorf("weight for unknown symbol: %s", sym)
			}
			total += w
		}
		if total > 1.0001 {
			return fmt.Errorf("strategy weights sum to %.4f, must not exceed 1", total)
		}
	case StrategySMACross:
		if c.Strategy.FastPeriod <= 0 || c.Strategy.SlowPeriod <= c.Strategy.FastPeriod {
			return fmt.Errorf("sma periods invalid: fast=%d slow=%d",
				c.Strategy.FastPeriod, c.Strategy.SlowPeriod)
		}
		if c.Strategy.TradeQty <= 0 {
			return fmt.Errorf("trade_qty must be positive for %s", StrategySMACross)
		}
	default:
		return fmt.Errorf("unknown strategy: %s", c.Strategy.Name)
	}

	switch c.Journal.Backend {
	case JournalCSV, JournalSQLite:
	default:
		return fmt.Errorf("unknown journal backend: %s", c.Journal.Backend)
	}

	if c.Trading.LiveEnabled && !c.HasVenueCredentials() {
		return fmt.Errorf("live trading enabled but venue credentials are missing")
	}

	return nil
}

// HasVenueCredentials reports whether API credentials are configured.
func (c *Config) HasVenueCredentials() bool {
	return c.Binance.APIKey != "" && c.Binance.APISecret != ""
}

// Cooldown returns the strategy cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Strategy.CooldownSec * float64(time.Second))
}

// ReportInterval returns the portfolio report interval as a duration.
func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.Report.IntervalSec * float64(time.Second))
}

// overrideWithEnv applies environment variables over file values.
// Environment takes precedence so secrets can stay out of config files.
func overrideWithEnv(cfg *Config) {
	if cfg.Binance.APISecret != "" {
		slog.Warn("API secret found in config file, prefer environment variables",
			slog.String("env", "HFT_BINANCE_KEY / HFT_BINANCE_SECRET"))
	}

	if key := os.Getenv("HFT_BINANCE_KEY"); key != "" {
		cfg.Binance.APIKey = key
	}
	if secret := os.Getenv("HFT_BINANCE_SECRET"); secret != "" {
		cfg.Binance.APISecret = secret
	}
}
