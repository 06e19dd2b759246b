package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/henryp-7/hft-bot/internal/domain"
	"github.com/henryp-7/hft-bot/internal/execution"
	"github.com/henryp-7/hft-bot/internal/feed"
	"github.com/henryp-7/hft-bot/internal/portfolio"
	"github.com/henryp-7/hft-bot/internal/risk"
	"github.com/henryp-7/hft-bot/internal/storage"
	"github.com/henryp-7/hft-bot/internal/strategy"
)

// Orchestrator is the single-threaded trading loop. Each iteration
// consumes one quote and drives it through the full pipeline: cache,
// journal, strategy, risk, execution, ledger. Strategy, risk, execution
// and ledger all run on this one goroutine, so no component needs
// internal locking and every run over the same quote sequence produces
// the same fills.
type Orchestrator struct {
	source   feed.Source
	cache    *QuoteCache
	journal  storage.Journal
	strategy strategy.Strategy
	risk     *risk.Manager
	exec     execution.Engine
	ledger   *portfolio.Ledger

	reportEvery time.Duration
	lastReport  time.Time
	ticks       uint64
	fills       uint64
	rejects     uint64
}

// NewOrchestrator wires the pipeline. reportEvery <= 0 disables the
// periodic portfolio report.
func NewOrchestrator(
	source feed.Source,
	journal storage.Journal,
	strat strategy.Strategy,
	riskMgr *risk.Manager,
	exec execution.Engine,
	ledger *portfolio.Ledger,
	reportEvery time.Duration,
) *Orchestrator {
	return &Orchestrator{
		source:      source,
		cache:       NewQuoteCache(),
		journal:     journal,
		strategy:    strat,
		risk:        riskMgr,
		exec:        exec,
		ledger:      ledger,
		reportEvery: reportEvery,
	}
}

// Run processes quotes until the source is exhausted, the context is
// canceled, or the source fails fatally. Exhaustion and cancellation are
// clean terminations (nil). The journal is flushed and final state logged
// on every exit path.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.lastReport = time.Now()
	defer o.finish()

	for {
		q, err := o.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, feed.ErrExhausted):
				slog.Info("Quote source exhausted, stopping")
				return nil
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				slog.Info("Shutdown requested, stopping")
				return nil
			default:
				return err
			}
		}

		if verr := q.Validate(); verr != nil {
			slog.Warn("Malformed quote skipped", "symbol", q.Symbol, "err", verr)
			continue
		}

		if err := o.processQuote(ctx, q); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("Shutdown requested mid-order, stopping")
				return nil
			}
			return err
		}

		o.maybeReport()
	}
}

// processQuote drives one quote through the pipeline.
func (o *Orchestrator) processQuote(ctx context.Context, q domain.Quote) error {
	o.ticks++
	o.cache.Put(q)

	if err := o.journal.AppendQuote(q); err != nil {
		slog.Warn("Quote journal write failed", "symbol", q.Symbol, "err", err)
	}

	snap := strategy.Snapshot{
		Quotes:    o.cache.Snapshot(),
		Portfolio: o.ledger.View(),
	}

	requests := o.strategy.OnQuote(q, snap)

	for _, req := range requests {
		if err := o.submitOrder(ctx, req, snap.Quotes); err != nil {
			return err
		}
	}
	return nil
}

// submitOrder runs one order request through risk, execution and the
// ledger. Risk and venue rejections are terminal for the request, never
// for the loop; context cancellation and a fill the ledger refuses to
// book propagate and stop the run.
func (o *Orchestrator) submitOrder(ctx context.Context, req domain.OrderRequest, quotes map[string]domain.Quote) error {
	if err := req.Validate(); err != nil {
		slog.Warn("Invalid order request dropped", "err", err)
		return nil
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	// Risk checks run against the ledger as it stands now, including
	// fills applied earlier in this same iteration.
	if err := o.risk.Check(req, o.ledger.View(), quotes); err != nil {
		o.rejects++
		slog.Info("Order rejected by risk",
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
			"reason", risk.ReasonOf(err))
		return nil
	}

	latest, _ := o.cache.Get(req.Symbol)
	fill, err := o.exec.Submit(ctx, req, latest)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		o.rejects++
		slog.Warn("Order rejected by execution",
			"symbol", req.Symbol,
			"side", req.Side,
			"code", execution.CodeOf(err),
			"err", err)
		return nil
	}

	if err := o.ledger.ApplyFill(fill); err != nil {
		// The fill happened but cannot be booked. Against a real venue
		// that means money moved and the ledger no longer reflects it,
		// so the loop must stop rather than trade on diverged state.
		slog.Error("Fill could not be applied to ledger, halting",
			"symbol", fill.Symbol,
			"order_id", fill.OrderID,
			"err", err)
		return fmt.Errorf("apply fill %s: %w", fill.OrderID, err)
	}

	if err := o.journal.AppendFill(fill); err != nil {
		slog.Warn("Fill journal write failed", "symbol", fill.Symbol, "err", err)
	}

	o.fills++
	slog.Info("Filled",
		"symbol", fill.Symbol,
		"side", fill.Side,
		"qty", fill.Qty,
		"price", fill.Price,
		"fee", fill.Fee,
		"intent", req.Intent)
	return nil
}

// maybeReport logs a portfolio summary at the configured cadence.
func (o *Orchestrator) maybeReport() {
	if o.reportEvery <= 0 || time.Since(o.lastReport) < o.reportEvery {
		return
	}
	o.lastReport = time.Now()

	view := o.ledger.View()
	quotes := o.cache.Snapshot()
	slog.Info("Portfolio report",
		"equity", view.Equity(quotes),
		"cash", view.Cash,
		"exposure", view.TotalExposure(quotes),
		"realized_pnl", o.ledger.RealizedPnL(),
		"ticks", o.ticks,
		"fills", o.fills,
		"rejects", o.rejects)
}

// View exposes current portfolio state for callers outside the loop
// (snapshots, shutdown reporting).
func (o *Orchestrator) View() portfolio.View {
	return o.ledger.View()
}

func (o *Orchestrator) finish() {
	if err := o.journal.Flush(); err != nil {
		slog.Warn("Journal flush failed", "err", err)
	}

	view := o.ledger.View()
	quotes := o.cache.Snapshot()
	slog.Info("Run complete",
		"equity", view.Equity(quotes),
		"cash", view.Cash,
		"realized_pnl", o.ledger.RealizedPnL(),
		"ticks", o.ticks,
		"fills", o.fills,
		"rejects", o.rejects)
}
