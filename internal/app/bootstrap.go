package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/henryp-7/hft-bot/internal/engine"
	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/feed"
	"github.com/henryp-7/hft-bot/internal/infra"
	"github.com/henryp-7/hft-bot/internal/portfolio"
	"github.com/henryp-7/hft-bot/internal/risk"
	"github.com/henryp-7/hft-bot/internal/storage"
	"github.com/henryp-7/hft-bot/internal/strategy"
	"github.com/henryp-7/hft-bot/internal/venue"
)

// Bootstrap wires the full pipeline from configuration: feed, journal,
// strategy, risk, execution, ledger, orchestrator.
type Bootstrap struct {
	Config       *infra.Config
	Orchestrator *engine.Orchestrator

	source    feed.Source
	journal   storage.Journal
	snapshots *storage.SnapshotManager
}

// NewBootstrap loads configuration and constructs every component.
// live selects routed execution against the venue; false means simulated
// fills regardless of configuration.
func NewBootstrap(configPath string, live bool) (*Bootstrap, error) {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("Bootstrapping",
		"app", cfg.App.Name,
		"mode", cfg.Data.Mode,
		"strategy", cfg.Strategy.Name,
		"live", live)

	b := &Bootstrap{Config: cfg}

	if b.journal, err = buildJournal(cfg); err != nil {
		return nil, err
	}
	if b.source, err = buildSource(cfg); err != nil {
		b.Close()
		return nil, err
	}

	strat, err := buildStrategy(cfg)
	if err != nil {
		b.Close()
		return nil, err
	}

	ledger, err := portfolio.NewLedger(cfg.QuoteCcy, decimal.NewFromFloat(cfg.Portfolio.InitialCash))
	if err != nil {
		b.Close()
		return nil, err
	}

	exec, err := buildExecution(cfg, live)
	if err != nil {
		b.Close()
		return nil, err
	}

	b.snapshots = storage.NewSnapshotManager(filepath.Join(cfg.Journal.Dir, "snapshots"))

	b.Orchestrator = engine.NewOrchestrator(
		b.source,
		b.journal,
		strat,
		risk.NewManager(buildLimits(cfg)),
		exec,
		ledger,
		cfg.ReportInterval(),
	)
	return b, nil
}

// Run drives the trading loop until termination, then snapshots the
// portfolio and releases resources.
func (b *Bootstrap) Run(ctx context.Context) error {
	defer b.Close()

	runErr := b.Orchestrator.Run(ctx)

	if err := b.snapshots.Save(storage.CreateSnapshot(b.Orchestrator.View())); err != nil {
		slog.Warn("Portfolio snapshot failed", "err", err)
	}
	return runErr
}

// Close releases the feed and journal. Safe to call more than once.
func (b *Bootstrap) Close() {
	if b.source != nil {
		b.source.Close()
		b.source = nil
	}
	if b.journal != nil {
		b.journal.Close()
		b.journal = nil
	}
}

func buildJournal(cfg *infra.Config) (storage.Journal, error) {
	switch cfg.Journal.Backend {
	case infra.JournalSQLite:
		return storage.NewSQLiteJournal(filepath.Join(cfg.Journal.Dir, "journal.db"))
	default:
		return storage.NewCSVJournal(cfg.Journal.Dir)
	}
}

func buildSource(cfg *infra.Config) (feed.Source, error) {
	switch cfg.Data.Mode {
	case infra.DataModeLive:
		return feed.NewLiveSource(feed.LiveConfig{
			WSURL:         cfg.Data.WSURL,
			Symbols:       cfg.Symbols,
			MaxReconnects: cfg.Data.MaxReconnects,
		})
	default:
		return feed.NewReplaySource(feed.ReplayConfig{
			Dir:     cfg.Data.ReplayDir,
			Dataset: cfg.Data.Dataset,
			Symbols: cfg.Symbols,
			Speed:   *cfg.Data.ReplaySpeed,
			Loop:    cfg.Data.ReplayLoop,
		})
	}
}

func buildStrategy(cfg *infra.Config) (strategy.Strategy, error) {
	switch cfg.Strategy.Name {
	case infra.StrategySMACross:
		qty := decimal.NewFromFloat(cfg.Strategy.TradeQty)
		var multi strategy.Multi
		for _, sym := range cfg.Symbols {
			multi = append(multi, strategy.NewSMACross(sym, cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod, qty))
		}
		return multi, nil

	case infra.StrategyRebalance:
		weights := make(map[string]decimal.Decimal, len(cfg.Strategy.Weights))
		for sym, w := range cfg.Strategy.Weights {
			weights[sym] = decimal.NewFromFloat(w)
		}
		// Size buys against a cushioned price so fills after slippage and
		// fees cannot overdraw cash.
		cushion := cfg.Strategy.PriceCushionBps
		if cushion == 0 {
			cushion = cfg.Execution.SlippageBps + cfg.Execution.FeeBps
		}
		return strategy.NewRebalancer(strategy.RebalanceConfig{
			Weights:         weights,
			DeviationAbs:    decimal.NewFromFloat(cfg.Strategy.DeviationAbs),
			DeviationPct:    decimal.NewFromFloat(cfg.Strategy.DeviationPct),
			LotSize:         decimal.NewFromFloat(cfg.Strategy.LotSize),
			PriceCushionBps: decimal.NewFromFloat(cushion),
			Cooldown:        cfg.Cooldown(),
		}), nil

	default:
		return nil, fmt.Errorf("unknown strategy: %s", cfg.Strategy.Name)
	}
}

func buildLimits(cfg *infra.Config) risk.Limits {
	perSymbol := make(map[string]decimal.Decimal, len(cfg.Risk.PerSymbolCaps))
	for sym, cap := range cfg.Risk.PerSymbolCaps {
		perSymbol[sym] = decimal.NewFromFloat(cap)
	}
	return risk.Limits{
		PerSymbol:        perSymbol,
		DefaultPerSymbol: decimal.NewFromFloat(cfg.Risk.PerSymbolCap),
		Aggregate:        decimal.NewFromFloat(cfg.Risk.AggregateCap),
		SlippageBps:      decimal.NewFromFloat(cfg.Execution.SlippageBps),
		FeeBps:           decimal.NewFromFloat(cfg.Execution.FeeBps),
	}
}

func buildExecution(cfg *infra.Config, live bool) (execution.Engine, error) {
	if !live {
		return execution.NewSimulated(
			decimal.NewFromFloat(cfg.Execution.SlippageBps),
			decimal.NewFromFloat(cfg.Execution.FeeBps),
		), nil
	}

	if !cfg.HasVenueCredentials() {
		return nil, fmt.Errorf("live execution requires venue credentials (HFT_BINANCE_KEY / HFT_BINANCE_SECRET)")
	}

	// 10 req/s with a small burst keeps well under venue order limits.
	limiter := infra.NewRateLimiter(5, 10)
	client := venue.NewBinanceClient(cfg.Binance.APIKey, cfg.Binance.APISecret, cfg.Binance.Testnet, limiter)
	breaker := infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("binance"))
	return execution.NewRouted(client, cfg.Execution.MaxAttempts, breaker), nil
}
